package entity

import "time"

// Feed represents a configured RSS/Atom source in the system. url uniquely
// identifies a feed; category assigns the prompt family applied to every
// article the feed produces.
type Feed struct {
	ID            int64
	Name          string
	URL           string
	CategoryID    int64
	Enabled       bool
	LastCrawledAt *time.Time
}

// Validate checks the structural invariants of a Feed before it is
// persisted or used by the crawler.
func (f *Feed) Validate() error {
	if f.Name == "" {
		return &ValidationError{Field: "name", Message: "feed name is required"}
	}
	if err := ValidateURL(f.URL); err != nil {
		return err
	}
	if f.CategoryID == 0 {
		return &ValidationError{Field: "category_id", Message: "feed must reference a category"}
	}
	return nil
}
