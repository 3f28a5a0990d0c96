package entity

// Image records the single acquired image for an article and the paths to
// its two derived renditions. A row exists if and only if the crawler's
// image download succeeded for that article; local_location is always set
// by the crawler at insertion time, and small_location is filled later by
// the image stage.
type Image struct {
	ID            int64
	ArticleID     string
	ImageName     string
	OriginalURL   string
	LocalLocation string  // web rendition path, set at crawl time
	SmallLocation *string // mobile rendition path, set by the image stage
	NewURL        string
}

// Processed reports whether the image stage has already produced a mobile
// rendition for this row; the image stage treats this as the resume test.
func (img *Image) Processed() bool {
	return img.SmallLocation != nil && *img.SmallLocation != ""
}
