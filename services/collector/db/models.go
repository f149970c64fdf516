package db

type Listing struct {
	Source       string
	ID           string
	Url          string
	Title        string
	Year         int64
	Make         string
	Model        string
	Mileage      int64
	Transmission string
	Color        string
	PriceCents   int64
	Currency     string
	Status       string
	EndTime      int64
	BidCount     int64
	WatcherCount int64
	CommentCount int64
	CollectedAt  int64
}

type CollectionRun struct {
	ID         int64
	Source     string
	Make       string
	Model      string
	Records    int64
	Errors     int64
	StartedAt  int64
	FinishedAt int64
}
