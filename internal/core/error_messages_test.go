package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "duplicate key maps correctly",
			err:         errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode:    "DB001",
			wantMessage: "A record with this number already exists",
		},
		{
			name:        "foreign key maps correctly",
			err:         errors.New("violates foreign key constraint"),
			wantCode:    "DB002",
			wantMessage: "Referenced record does not exist",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB003",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "timeout maps correctly",
			err:         errors.New("context deadline exceeded"),
			wantCode:    "DB006",
			wantMessage: "Operation timed out",
		},
		{
			name:        "file too large maps correctly",
			err:         errors.New("file too large: 30000000 bytes (max 20971520)"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum size limit",
		},
		{
			name:        "limiter saturation maps correctly",
			err:         ErrTooManyImports,
			wantCode:    "IMP001",
			wantMessage: "System is busy processing other imports",
		},
		{
			name:        "same year import maps correctly",
			err:         ErrImportInProgress,
			wantCode:    "IMP002",
			wantMessage: "Another import is running for this financial year",
		},
		{
			name:        "closed exchange maps correctly",
			err:         ErrExchangeClosed,
			wantCode:    "IMP003",
			wantMessage: "This exchange is closed",
		},
		{
			name:        "wrapped not found maps correctly",
			err:         fmt.Errorf("get exchange 4: %w", ErrNotFound),
			wantCode:    "IMP004",
			wantMessage: "Record not found",
		},
		{
			name:        "file too large sentinel maps correctly",
			err:         fmt.Errorf("%w: 2048 bytes (max 1024)", ErrFileTooLarge),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum size limit",
		},
		{
			name:        "malformed request maps correctly",
			err:         errors.New(`invalid request: exchange id "abc"`),
			wantCode:    "REQ001",
			wantMessage: "The request is malformed",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DUPLICATE KEY value violates"),
			wantCode:    "DB001",
			wantMessage: "A record with this number already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestMapError_InvalidFilePassesThrough(t *testing.T) {
	invalid := &InvalidFile{
		Key:      MsgJournalsInvalid,
		Message:  "Journaux inconnus : VT",
		Internal: errors.New("duplicate key in lookup"), // must not be pattern-matched
	}

	got := MapError(fmt.Errorf("import: %w", invalid))
	if got.Code != "EXC003" {
		t.Errorf("code = %q, want EXC003", got.Code)
	}
	if got.Message != invalid.Message {
		t.Errorf("message = %q, want %q", got.Message, invalid.Message)
	}
}

func TestFormatUserError(t *testing.T) {
	err := errors.New("duplicate key value violates")
	result := FormatUserError(err)

	expected := "A record with this number already exists (Code: DB001). Check the file for entries that were already imported"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  errors.New("duplicate key"),
			want: true,
		},
		{
			name: "invalid file is user facing",
			err:  &InvalidFile{Key: MsgFileInvalid, Message: "bad file"},
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
