package model

import "time"

// SpeakingTest is a scheduled or completed speaking test for one user.
type SpeakingTest struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	TestDate  time.Time `json:"test_date"`
	Status    string    `json:"status"`
	Score     *float64  `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSpeakingTestRequest is the payload for scheduling a speaking test.
type CreateSpeakingTestRequest struct {
	UserID   int       `json:"user_id" binding:"required,min=1"`
	TestDate time.Time `json:"test_date" binding:"required"`
	Status   string    `json:"status" binding:"required,max=50"`
}
