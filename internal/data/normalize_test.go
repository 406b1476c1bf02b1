package data

import (
	"testing"
)

func TestNormalizeChannelName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "country code removal",
			input:    "US: ESPN",
			expected: "espn",
		},
		{
			name:     "three letter country code",
			input:    "AUS: FOX CRICKET",
			expected: "foxcricket",
		},
		{
			name:     "spaces and case",
			input:    "FOX SPORTS 502",
			expected: "foxsports502",
		},
		{
			name:     "special characters",
			input:    "ESPN & Sports Plus",
			expected: "espnandsportsplus",
		},
		{
			name:     "dots and dashes",
			input:    "Racing.com-HD",
			expected: "racingcomhd",
		},
		{
			name:     "underscores",
			input:    "Channel_Name_123",
			expected: "channelname123",
		},
		{
			name:     "plus sign",
			input:    "Disney+",
			expected: "disneyplus",
		},
		{
			name:     "trim spaces",
			input:    "  Channel Name  ",
			expected: "channelname",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeChannelName(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeChannelName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
