package types

import (
	"reflect"
	"testing"
	"time"
)

func TestParseAlertKindSet(t *testing.T) {
	set, err := ParseAlertKindSet([]string{"forecast_change", "daily_summary"})
	if err != nil {
		t.Fatalf("ParseAlertKindSet: %v", err)
	}
	want := []AlertKind{AlertKindDailySummary, AlertKindForecastChange}
	if got := set.Slice(); !reflect.DeepEqual(got, want) {
		t.Errorf("Slice() = %v, want evaluation order %v", got, want)
	}
	if set.Has(AlertKindSunnyPreAlert) {
		t.Error("set should not contain sunny_pre_alert")
	}

	_, err = ParseAlertKindSet([]string{"hourly_digest"})
	if CodeOf(err) != ErrCodeValidationAlertKind {
		t.Errorf("unknown kind error code = %q", CodeOf(err))
	}
}

func TestUserLocationValidate(t *testing.T) {
	valid := UserLocation{UserID: "u1", Latitude: 59.93, Longitude: 30.31, Timezone: "Europe/Moscow"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid user rejected: %v", err)
	}

	tests := []struct {
		name string
		mut  func(u *UserLocation)
		code ErrorCode
	}{
		{"missing id", func(u *UserLocation) { u.UserID = "" }, ErrCodeValidationMissingField},
		{"latitude", func(u *UserLocation) { u.Latitude = 91 }, ErrCodeValidationInvalidLat},
		{"longitude", func(u *UserLocation) { u.Longitude = -181 }, ErrCodeValidationInvalidLon},
		{"timezone", func(u *UserLocation) { u.Timezone = "Mars/Olympus" }, ErrCodeValidationInvalidTimezone},
		{"empty timezone", func(u *UserLocation) { u.Timezone = "" }, ErrCodeValidationInvalidTimezone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := valid
			tt.mut(&u)
			if got := CodeOf(u.Validate()); got != tt.code {
				t.Errorf("Validate() code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestForecastSnapshotCovers(t *testing.T) {
	today := Date{2026, time.October, 14}
	snap := &ForecastSnapshot{Days: []DayForecast{{Date: today}, {Date: today.AddDays(1)}}}

	if !snap.Covers(today, 2) {
		t.Error("snapshot should cover today and tomorrow")
	}
	if snap.Covers(today, 3) {
		t.Error("snapshot should not cover three days")
	}
	var empty *ForecastSnapshot
	if _, ok := empty.Day(today); ok {
		t.Error("nil snapshot has no days")
	}
}

func TestDigestText(t *testing.T) {
	var d Digest
	d[0], d[31] = 0xab, 0x01

	text, _ := d.MarshalText()
	var back Digest
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if back != d {
		t.Errorf("round trip mismatch: %s vs %s", back, d)
	}
	if err := back.SetBytes([]byte{1, 2, 3}); err == nil {
		t.Error("SetBytes should reject short input")
	}
}
