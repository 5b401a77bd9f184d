package model

import "time"

// Repository represents a repository watched by the gate.
type Repository struct {
	ID       int64
	FullName string
	Owner    string
	Name     string
	AddedAt  time.Time
}
