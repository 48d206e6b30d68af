package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	if got := SessionTopic("KNWL"); got != "campus/sessions/KNWL" {
		t.Errorf("SessionTopic: got %q", got)
	}
	if got := IngestedTopic("KNWL"); got != "campus/ingested/KNWL" {
		t.Errorf("IngestedTopic: got %q", got)
	}
	if got := StatusTopic("session-collector-1"); got != "campus/collector/status/session-collector-1" {
		t.Errorf("StatusTopic: got %q", got)
	}
}

func TestBuildingFromTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		want    string
		wantErr bool
	}{
		{"valid", "campus/sessions/KNWL", "KNWL", false},
		{"empty building", "campus/sessions/", "", true},
		{"wrong prefix", "campus/ingested/KNWL", "", true},
		{"too many segments", "campus/sessions/KNWL/extra", "", true},
		{"not a topic", "garbage", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildingFromTopic(tt.topic)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.topic)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
