package timecodec_test

import (
	"testing"
	"time"

	"github.com/andrelbdutra/Temperature-DataLog-IoT/tools/timecodec"
)

func TestFormat_CanonicalForm(t *testing.T) {
	instant := time.Date(2025, 8, 11, 16, 20, 0, 0, time.UTC)

	result := timecodec.Format(instant)
	if result != "2025-08-11T16:20:00Z" {
		t.Errorf("Expected 2025-08-11T16:20:00Z, got %s", result)
	}
}

func TestFormat_NonUTCInput(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	instant := time.Date(2025, 8, 11, 18, 20, 0, 0, zone)

	result := timecodec.Format(instant)
	if result != "2025-08-11T16:20:00Z" {
		t.Errorf("Expected conversion to UTC Z form, got %s", result)
	}
}

func TestFormat_TruncatesFractionalSeconds(t *testing.T) {
	instant := time.Date(2025, 8, 11, 16, 20, 0, 987654321, time.UTC)

	result := timecodec.Format(instant)
	if result != "2025-08-11T16:20:00Z" {
		t.Errorf("Expected whole-second output, got %s", result)
	}
}

func TestParse_CanonicalForm(t *testing.T) {
	result, err := timecodec.Parse("2025-08-11T16:20:00Z")
	if err != nil {
		t.Fatalf("Failed to parse canonical form: %v", err)
	}

	expected := time.Date(2025, 8, 11, 16, 20, 0, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParse_ZeroOffsetForm(t *testing.T) {
	result, err := timecodec.Parse("2025-08-11T16:20:00+00:00")
	if err != nil {
		t.Fatalf("Failed to parse +00:00 form: %v", err)
	}

	expected := time.Date(2025, 8, 11, 16, 20, 0, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParse_RejectsMissingOffset(t *testing.T) {
	if _, err := timecodec.Parse("2025-08-11T16:20:00"); err == nil {
		t.Error("Expected error for timestamp without offset")
	}
}

func TestParse_RejectsNonUTCOffset(t *testing.T) {
	if _, err := timecodec.Parse("2025-08-11T16:20:00+02:00"); err == nil {
		t.Error("Expected error for non-UTC offset")
	}
}

func TestParse_RejectsFractionalSeconds(t *testing.T) {
	inputs := []string{
		"2025-08-11T16:20:00.500Z",
		"2025-08-11T16:20:00.5Z",
		"2025-08-11T16:20:00.500+00:00",
	}
	for _, input := range inputs {
		if result, err := timecodec.Parse(input); err == nil {
			t.Errorf("Expected error for fractional seconds in %q, parsed to %v", input, result)
		}
	}
}

func TestParse_RejectsMalformed(t *testing.T) {
	if _, err := timecodec.Parse("not-a-date"); err == nil {
		t.Error("Expected error for malformed input")
	}
}

func TestRoundTrip(t *testing.T) {
	instant := time.Date(2031, 1, 2, 3, 4, 5, 0, time.UTC)

	parsed, err := timecodec.Parse(timecodec.Format(instant))
	if err != nil {
		t.Fatalf("Round trip failed to parse: %v", err)
	}
	if !parsed.Equal(instant) {
		t.Errorf("Expected %v, got %v", instant, parsed)
	}
}

func TestNow_WholeSeconds(t *testing.T) {
	result := timecodec.Now()

	if result.Nanosecond() != 0 {
		t.Errorf("Expected whole-second instant, got %d ns", result.Nanosecond())
	}
	if result.Location() != time.UTC {
		t.Errorf("Expected UTC, got %v", result.Location())
	}
}

func TestLexicalOrderMatchesChronological(t *testing.T) {
	earlier := time.Date(2025, 8, 11, 9, 0, 0, 0, time.UTC)
	later := time.Date(2025, 8, 11, 16, 20, 0, 0, time.UTC)

	if !(timecodec.Format(earlier) < timecodec.Format(later)) {
		t.Error("Expected lexical order of canonical strings to follow chronology")
	}
}
