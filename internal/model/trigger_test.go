package model

import (
	"errors"
	"testing"
	"time"
)

func TestOffsetValidate(t *testing.T) {
	n, neg := 2, -1
	cases := []struct {
		name    string
		offset  Offset
		wantErr bool
	}{
		{name: "days", offset: DaysBefore(7)},
		{name: "hours", offset: HoursBefore(0)},
		{name: "both", offset: Offset{DaysBefore: &n, HoursBefore: &n}, wantErr: true},
		{name: "neither", offset: Offset{}, wantErr: true},
		{name: "negative", offset: Offset{HoursBefore: &neg}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.offset.Validate()
			if tc.wantErr && !errors.Is(err, ErrInvalidOffset) {
				t.Fatalf("expected ErrInvalidOffset, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseOffsets(t *testing.T) {
	got, err := ParseOffsets("7d,3d", " 1H ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"7d", "3d", "1h"}
	if len(got) != len(want) {
		t.Fatalf("expected %d offsets, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Fatalf("offset %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	for _, bad := range []string{"d", "7w", "-1d", "xh"} {
		if _, err := ParseOffset(bad); !errors.Is(err, ErrInvalidOffset) {
			t.Fatalf("expected ErrInvalidOffset for %q, got %v", bad, err)
		}
	}
}

func TestComputeTriggers(t *testing.T) {
	due := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	triggers := ComputeTriggers(due, []Offset{DaysBefore(7), HoursBefore(1)})
	if len(triggers) != 2 {
		t.Fatalf("expected 2 triggers, got %d", len(triggers))
	}
	if want := time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC); !triggers[0].ScheduledFor.Equal(want) {
		t.Fatalf("expected %s, got %s", want, triggers[0].ScheduledFor)
	}
	if want := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC); !triggers[1].ScheduledFor.Equal(want) {
		t.Fatalf("expected %s, got %s", want, triggers[1].ScheduledFor)
	}
	for i, tr := range triggers {
		if tr.Sent {
			t.Fatalf("trigger %d should start unsent", i)
		}
	}
	if got := ComputeTriggers(due, nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
