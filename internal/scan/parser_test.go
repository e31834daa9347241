package scan

import (
	"errors"
	"testing"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		exitCode    int
		wantClean   bool
		wantThreats []string
		wantErr     error
	}{
		{
			name:      "clean scan",
			output:    "/scan: OK\n\n----------- SCAN SUMMARY -----------\nInfected files: 0\n",
			exitCode:  0,
			wantClean: true,
		},
		{
			name:        "single threat",
			output:      "/scan: Eicar-Signature FOUND\n",
			exitCode:    1,
			wantClean:   false,
			wantThreats: []string{"Eicar-Signature"},
		},
		{
			name:        "multiple threats",
			output:      "/scan/a: Win.Test.EICAR_HDB-1 FOUND\n/scan/b: Unix.Trojan.Generic FOUND\n",
			exitCode:    1,
			wantClean:   false,
			wantThreats: []string{"Win.Test.EICAR_HDB-1", "Unix.Trojan.Generic"},
		},
		{
			name:      "infected exit with no threat lines",
			output:    "something went sideways\n",
			exitCode:  1,
			wantClean: false,
			wantErr:   ErrNoThreatsInOutput,
		},
		{
			name:      "scanner error exit",
			output:    "ERROR: Can't access file\n",
			exitCode:  2,
			wantClean: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseResult([]byte(tt.output), tt.exitCode, versionOutput)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("parseResult() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseResult() error = %v", err)
			}

			if result.Clean != tt.wantClean {
				t.Errorf("Clean = %v, want %v", result.Clean, tt.wantClean)
			}
			if len(result.Threats) != len(tt.wantThreats) {
				t.Fatalf("Threats = %v, want %v", result.Threats, tt.wantThreats)
			}
			for i, want := range tt.wantThreats {
				if result.Threats[i] != want {
					t.Errorf("Threats[%d] = %q, want %q", i, result.Threats[i], want)
				}
			}
		})
	}
}

func TestExtractDatabaseDate(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"full version string", "ClamAV 1.5.1/27805/Mon Oct 27 09:50:30 2025", "Mon Oct 27 09:50:30 2025"},
		{"version only", "ClamAV 1.5.1", "unknown"},
		{"unknown", "unknown", "unknown"},
		{"empty", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractDatabaseDate(tt.version); got != tt.want {
				t.Errorf("extractDatabaseDate(%q) = %q, want %q", tt.version, got, tt.want)
			}
		})
	}
}
