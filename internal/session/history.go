package session

import "adforge/internal/campaign"

const DefaultHistoryLimit = 10

// History is a bounded most-recent-first list of ads. Pushing beyond the
// capacity drops the oldest entry.
type History struct {
	items    []campaign.Ad
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryLimit
	}
	return &History{capacity: capacity}
}

func (h *History) Push(ad campaign.Ad) {
	h.items = append(h.items, campaign.Ad{})
	copy(h.items[1:], h.items)
	h.items[0] = ad
	if len(h.items) > h.capacity {
		h.items = h.items[:h.capacity]
	}
}

func (h *History) All() []campaign.Ad {
	out := make([]campaign.Ad, len(h.items))
	copy(out, h.items)
	return out
}

func (h *History) Find(id string) (campaign.Ad, bool) {
	for _, ad := range h.items {
		if ad.ID == id {
			return ad, true
		}
	}
	return campaign.Ad{}, false
}

func (h *History) Len() int { return len(h.items) }

func (h *History) Cap() int { return h.capacity }

func (h *History) Reset() { h.items = nil }
