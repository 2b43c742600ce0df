package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestDate(t *testing.T) {
	ts := time.Date(2026, time.February, 16, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "Feb 16, 2026", Date("en", ts))
	assert.Equal(t, "Feb 16, 2026, 2:30 PM", DateTime("en", ts))
	assert.Equal(t, "16. Feb. 2026", Date("de", ts))
	assert.Equal(t, "16. Feb. 2026, 14:30", DateTime("de", ts))
	assert.Equal(t, "Feb 16, 2026", Date("not a locale", ts))
}

func TestDateString(t *testing.T) {
	assert.Equal(t, Placeholder, DateString("en", nil))
	assert.Equal(t, Placeholder, DateString("en", ptr("")))
	assert.Equal(t, "Mar 1, 2026", DateString("en", ptr("2026-03-01")))
	assert.Equal(t, "Mar 1, 2026", DateString("en", ptr("2026-03-01T08:00:00Z")))
	assert.Equal(t, "soon", DateString("en", ptr("soon")))
}

func TestAmount(t *testing.T) {
	cases := []struct {
		name     string
		locale   string
		amount   *float64
		currency *string
		want     string
	}{
		{name: "missing amount", locale: "en", want: Placeholder},
		{name: "default currency", locale: "en", amount: ptr(12.99), want: "$12.99"},
		{name: "euro", locale: "en", amount: ptr(5.5), currency: ptr("eur"), want: "€5.50"},
		{name: "german euro", locale: "de", amount: ptr(5.5), currency: ptr("EUR"), want: "5,50 €"},
		{name: "yen has no minor unit", locale: "en", amount: ptr(1200.0), currency: ptr("JPY"), want: "¥1,200"},
		{name: "unknown currency", locale: "en", amount: ptr(3.0), currency: ptr("???"), want: "$3.00"},
		{name: "code without symbol", locale: "en", amount: ptr(3.0), currency: ptr("CHF"), want: "CHF 3.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Amount(tc.locale, tc.amount, tc.currency))
		})
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, time.February, 16, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		at   *time.Time
		want string
	}{
		{at: nil, want: Placeholder},
		{at: ptr(now.Add(time.Hour)), want: "just now"},
		{at: ptr(now.Add(-30 * time.Second)), want: "just now"},
		{at: ptr(now.Add(-5 * time.Minute)), want: "5m ago"},
		{at: ptr(now.Add(-3 * time.Hour)), want: "3h ago"},
		{at: ptr(now.Add(-49 * time.Hour)), want: "2d ago"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TimeAgo(now, tc.at))
	}
}

func TestTimeUntil(t *testing.T) {
	now := time.Date(2026, time.February, 16, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, Placeholder, TimeUntil(now, nil))
	assert.Equal(t, "now", TimeUntil(now, ptr(now)))
	assert.Equal(t, "now", TimeUntil(now, ptr(now.Add(-time.Minute))))
	assert.Equal(t, "45s", TimeUntil(now, ptr(now.Add(45*time.Second))))
	assert.Equal(t, "2m 30s", TimeUntil(now, ptr(now.Add(150*time.Second))))
}
