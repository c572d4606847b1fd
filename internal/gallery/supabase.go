package gallery

import (
	"context"
	"encoding/json"
	"fmt"

	supa "github.com/supabase-community/supabase-go"
)

const supabaseTable = "generated_images"

// SupabaseIndex stores records in the generated_images table through the
// PostgREST API.
type SupabaseIndex struct {
	client *supa.Client
}

func NewSupabaseIndex(url, serviceKey string) (*SupabaseIndex, error) {
	client, err := supa.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return &SupabaseIndex{client: client}, nil
}

func (s *SupabaseIndex) Insert(_ context.Context, rec Record) error {
	row := map[string]any{
		"id":         rec.ID,
		"user_id":    rec.UserID,
		"title":      rec.Title,
		"prompt":     rec.Prompt,
		"image_url":  rec.ImageURL,
		"meta":       rec.Metadata,
		"created_at": rec.CreatedAt,
	}
	if rec.StoragePath != "" {
		row["storage_path"] = rec.StoragePath
	}
	if rec.SourceURL != "" {
		row["source_url"] = rec.SourceURL
	}

	if _, _, err := s.client.From(supabaseTable).Insert(row, false, "", "", "").Execute(); err != nil {
		return fmt.Errorf("insert %s: %w", supabaseTable, err)
	}
	return nil
}

// Recent fetches the user's rows and orders them locally.
func (s *SupabaseIndex) Recent(_ context.Context, userID string, limit int) ([]Record, error) {
	data, _, err := s.client.From(supabaseTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", supabaseTable, err)
	}

	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode %s rows: %w", supabaseTable, err)
	}
	return newestFirst(recs, limit), nil
}
