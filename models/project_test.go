package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDonationTotal(t *testing.T) {
	assert.True(t, DonationTotal(nil).IsZero())

	total := DonationTotal([]Donation{
		{Amount: dec("10.10")},
		{Amount: dec("20.20")},
		{Amount: dec("0.70")},
	})
	assert.True(t, total.Equal(dec("31")), "got %s", total)
}

func TestDonationPercentage(t *testing.T) {
	tests := []struct {
		name   string
		total  string
		target string
		want   string
	}{
		{"quarter", "250", "1000", "25"},
		{"nothing raised", "0", "1000", "0"},
		{"over funded is not capped", "1500", "1000", "150"},
		{"zero target", "100", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DonationPercentage(dec(tt.total), dec(tt.target))
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestProgressPercentageIsCapped(t *testing.T) {
	p := &Project{
		TotalTarget: dec("100"),
		Donations:   []Donation{{Amount: dec("300")}},
	}
	assert.True(t, p.DonationPercentage().Equal(dec("300")))
	assert.True(t, p.ProgressPercentage().Equal(dec("100")))
}

func TestAverageRating(t *testing.T) {
	assert.Equal(t, 0.0, AverageRating(nil))
	assert.InDelta(t, 3.5, AverageRating([]Rating{{Value: 3}, {Value: 4}}), 1e-9)
	assert.InDelta(t, 11.0/3.0, AverageRating([]Rating{{Value: 5}, {Value: 5}, {Value: 1}}), 1e-9)
}

func TestUserRating(t *testing.T) {
	p := &Project{Ratings: []Rating{{UserID: 1, Value: 4}, {UserID: 2, Value: 2}}}

	got := p.UserRating(2)
	if assert.NotNil(t, got) {
		assert.Equal(t, 2, *got)
	}
	assert.Nil(t, p.UserRating(3))
	assert.Equal(t, 2, p.RatingCount())
}

func TestCanBeCancelled(t *testing.T) {
	target := dec("1000")

	below := &Project{Status: StatusActive, TotalTarget: target, Donations: []Donation{{Amount: dec("249.99")}}}
	assert.True(t, below.CanBeCancelled())

	boundary := &Project{Status: StatusActive, TotalTarget: target, Donations: []Donation{{Amount: dec("250")}}}
	assert.False(t, boundary.CanBeCancelled(), "25% raised must not be cancellable")

	cancelled := &Project{Status: StatusCancelled, TotalTarget: target}
	assert.False(t, cancelled.CanBeCancelled())

	completed := &Project{Status: StatusCompleted, TotalTarget: target}
	assert.False(t, completed.CanBeCancelled())
}

func TestMainImage(t *testing.T) {
	now := time.Now()
	p := &Project{}
	assert.Nil(t, p.MainImage())

	p.Images = []ProjectImage{
		{ID: 1, ObjectKey: "b", CreatedAt: now.Add(time.Minute)},
		{ID: 2, ObjectKey: "a", CreatedAt: now},
	}
	assert.Equal(t, uint(2), p.MainImage().ID, "earliest image without a primary flag")

	p.Images[0].IsPrimary = true
	assert.Equal(t, uint(1), p.MainImage().ID)
}

func TestActivationTokenExpiry(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tok := &ActivationToken{CreatedAt: created}

	assert.False(t, tok.IsExpired(created.Add(23*time.Hour), 24*time.Hour))
	assert.False(t, tok.IsExpired(created.Add(24*time.Hour), 24*time.Hour))
	assert.True(t, tok.IsExpired(created.Add(24*time.Hour+time.Second), 24*time.Hour))
}

func TestIsValidReason(t *testing.T) {
	assert.True(t, IsValidReason(ProjectReportReasons, ReasonCopyright))
	assert.False(t, IsValidReason(CommentReportReasons, ReasonCopyright))
	assert.True(t, IsValidReason(CommentReportReasons, ReasonHateSpeech))
	assert.False(t, IsValidReason(ProjectReportReasons, "bogus"))
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&User{Username: "ada", FirstName: "Ada", LastName: "Lovelace"}).DisplayName())
	assert.Equal(t, "ada", (&User{Username: "ada"}).DisplayName())
}
