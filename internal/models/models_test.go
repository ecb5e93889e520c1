package models

import (
	"testing"
	"time"
)

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiration",
			expiresAt: time.Now().Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "just expired",
			expiresAt: time.Now().Add(-1 * time.Second),
			want:      true,
		},
		{
			name:      "expired yesterday",
			expiresAt: time.Now().Add(-24 * time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := Session{
				ID:        "test-session",
				UserID:    1,
				ExpiresAt: tt.expiresAt,
				CreatedAt: time.Now().Add(-1 * time.Hour),
			}
			if got := session.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPasswordResetTokenIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "valid token",
			expiresAt: time.Now().Add(30 * time.Minute),
			want:      false,
		},
		{
			name:      "expired token",
			expiresAt: time.Now().Add(-1 * time.Minute),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := PasswordResetToken{
				Token:     "test-token",
				UserID:    1,
				ExpiresAt: tt.expiresAt,
			}
			if got := token.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPracticeSessionConsistency(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		session PracticeSession
	}{
		{
			name: "in-progress session",
			session: PracticeSession{
				ID:             1,
				UserID:         1,
				QuizID:         1,
				StartedAt:      now,
				TotalQuestions: 10,
				TotalAttempts:  4,
				TotalCorrect:   3,
			},
		},
		{
			name: "completed session",
			session: PracticeSession{
				ID:             2,
				UserID:         1,
				QuizID:         1,
				StartedAt:      now,
				CompletedAt:    &now,
				TotalQuestions: 10,
				TotalAttempts:  13,
				TotalCorrect:   12,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.session.UserID == 0 {
				t.Error("UserID should not be 0")
			}
			if tt.session.QuizID == 0 {
				t.Error("QuizID should not be 0")
			}
			if tt.session.TotalCorrect > tt.session.TotalAttempts {
				t.Error("TotalCorrect cannot exceed TotalAttempts")
			}
		})
	}
}
