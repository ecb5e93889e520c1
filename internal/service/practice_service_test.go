package service

import (
	"testing"
)

func TestAnswersMatch(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
		ok   bool
	}{
		{
			name: "exact match",
			got:  "Paris",
			want: "Paris",
			ok:   true,
		},
		{
			name: "case insensitive",
			got:  "paris",
			want: "Paris",
			ok:   true,
		},
		{
			name: "surrounding whitespace ignored",
			got:  "  Paris  ",
			want: "Paris",
			ok:   true,
		},
		{
			name: "wrong answer",
			got:  "Lyon",
			want: "Paris",
			ok:   false,
		},
		{
			name: "empty answer",
			got:  "",
			want: "Paris",
			ok:   false,
		},
		{
			name: "inner spaces are significant",
			got:  "NewYork",
			want: "New York",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := answersMatch(tt.got, tt.want); got != tt.ok {
				t.Errorf("answersMatch(%q, %q) = %v, want %v", tt.got, tt.want, got, tt.ok)
			}
		})
	}
}

func TestDecodeChoices(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "empty column means free text",
			raw:  "",
			want: nil,
		},
		{
			name: "valid list",
			raw:  `["Paris","Lyon","Nice"]`,
			want: []string{"Paris", "Lyon", "Nice"},
		},
		{
			name: "malformed json is ignored",
			raw:  `not-json`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeChoices(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("DecodeChoices(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("choice %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEncodeChoices(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		choices []string
		want    string
		wantErr bool
	}{
		{
			name:    "no choices stores empty string",
			answer:  "Paris",
			choices: nil,
			want:    "",
		},
		{
			name:    "valid choices",
			answer:  "Paris",
			choices: []string{"Paris", "Lyon"},
			want:    `["Paris","Lyon"]`,
		},
		{
			name:    "answer missing from choices",
			answer:  "Paris",
			choices: []string{"Lyon", "Nice"},
			wantErr: true,
		},
		{
			name:    "single choice rejected",
			answer:  "Paris",
			choices: []string{"Paris"},
			wantErr: true,
		},
		{
			name:    "duplicates collapsed",
			answer:  "Paris",
			choices: []string{"Paris", "paris", "Lyon"},
			want:    `["Paris","Lyon"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeChoices(tt.answer, tt.choices)
			if (err != nil) != tt.wantErr {
				t.Fatalf("encodeChoices() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("encodeChoices() = %q, want %q", got, tt.want)
			}
		})
	}
}
