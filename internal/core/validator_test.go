package core

import (
	"errors"
	"log/slog"
	"testing"

	"weatheralert/internal/types"
)

type sampleRequest struct {
	Kind     string   `json:"alert_kind" validate:"required,alert_kind"`
	Timezone string   `json:"timezone" validate:"omitempty,iana_tz"`
	UserIDs  []string `json:"user_ids" validate:"max=2,dive,required"`
}

func TestValidateStruct(t *testing.T) {
	v := NewValidator(slog.Default())

	tests := []struct {
		name       string
		req        sampleRequest
		wantFields map[string]string
	}{
		{
			name: "valid",
			req:  sampleRequest{Kind: "sunny_pre_alert", Timezone: "Europe/Moscow", UserIDs: []string{"u1"}},
		},
		{
			name:       "unknown alert kind",
			req:        sampleRequest{Kind: "hail"},
			wantFields: map[string]string{"alert_kind": "alert_kind"},
		},
		{
			name:       "bad timezone",
			req:        sampleRequest{Kind: "daily_summary", Timezone: "Mars/Olympus"},
			wantFields: map[string]string{"timezone": "iana_tz"},
		},
		{
			name:       "too many users",
			req:        sampleRequest{Kind: "daily_summary", UserIDs: []string{"a", "b", "c"}},
			wantFields: map[string]string{"user_ids": "max=2"},
		},
		{
			name:       "blank user id",
			req:        sampleRequest{Kind: "daily_summary", UserIDs: []string{"a", ""}},
			wantFields: map[string]string{"user_ids[1]": "required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.req)
			if tt.wantFields == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var appErr *types.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != types.ErrCodeValidationRequest {
				t.Errorf("code = %s", appErr.Code)
			}
			fields, _ := appErr.Details["fields"].(map[string]any)
			for field, rule := range tt.wantFields {
				if fields[field] != rule {
					t.Errorf("fields[%q] = %v, want %q (all: %v)", field, fields[field], rule, fields)
				}
			}
		})
	}
}

func TestValidateStruct_NonStructIsInternal(t *testing.T) {
	err := NewValidator(nil).ValidateStruct(42)
	if types.CodeOf(err) != types.ErrCodeInternalUnexpected {
		t.Errorf("code = %q", types.CodeOf(err))
	}
}
