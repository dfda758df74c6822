package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseDateCalendarDay(t *testing.T) {
    got, ok := ParseDate("2024-10-10")
    if !ok {
        t.Fatalf("expected ok")
    }
    if FormatDate(got) != "2024-10-10" {
        t.Fatalf("unexpected date %v", got)
    }
}

func TestParseDateTruncatesTimestamp(t *testing.T) {
    got, ok := ParseDate("2024-10-10T22:10:10Z")
    if !ok {
        t.Fatalf("expected ok")
    }
    if !got.Equal(time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)) {
        t.Fatalf("unexpected date %v", got)
    }
}

func TestParseDateUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseDate(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if FormatDate(got) != "2024-10-10" {
        t.Fatalf("unexpected date %v", got)
    }
}

func TestParseDateDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
    got := ParseDateDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestDaysBetween(t *testing.T) {
    a := time.Date(2024, 2, 27, 15, 0, 0, 0, time.UTC)
    b := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
    if d := DaysBetween(a, b); d != 3 {
        t.Fatalf("expected 3 days, got %d", d)
    }
    if d := AbsDays(b, a); d != 3 {
        t.Fatalf("expected 3 days, got %d", d)
    }
}

func TestParseFloatRejectsMissingMarker(t *testing.T) {
    if _, err := ParseFloat("."); err == nil {
        t.Fatalf("expected error for FRED missing marker")
    }
    v, err := ParseFloat(" 1.0856 ")
    if err != nil || v != 1.0856 {
        t.Fatalf("unexpected %v %v", v, err)
    }
}
