package db

// Config holds database configuration
type Config struct {
	Path       string
	LogQueries bool
}
