package validator

import (
	"testing"

	"keiteki/pkg/logger"
	"keiteki/pkg/model"
)

func newTestValidator() *RentalValidator {
	return NewRentalValidator(logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	}))
}

func TestValidate(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		req     model.RentalRequest
		wantErr bool
	}{
		{
			name: "valid start",
			req:  model.RentalRequest{Action: "start", BikeID: "bike-1", ResidentKey: "A-3-E-山田"},
		},
		{
			name: "valid end without resident key",
			req:  model.RentalRequest{Action: "end", BikeID: "bike-1"},
		},
		{
			name:    "start without resident key",
			req:     model.RentalRequest{Action: "start", BikeID: "bike-1"},
			wantErr: true,
		},
		{
			name:    "unknown action",
			req:     model.RentalRequest{Action: "pause", BikeID: "bike-1"},
			wantErr: true,
		},
		{
			name:    "missing action",
			req:     model.RentalRequest{BikeID: "bike-1"},
			wantErr: true,
		},
		{
			name:    "missing bike",
			req:     model.RentalRequest{Action: "end"},
			wantErr: true,
		},
		{
			name:    "resident key too short",
			req:     model.RentalRequest{Action: "start", BikeID: "bike-1", ResidentKey: "ab"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
