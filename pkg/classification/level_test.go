package classification

import "testing"

var rankOrder = []Level{Unclassified, CUI, Confidential, Secret, TopSecret, TSSCI}

func TestLevel_TotalOrder(t *testing.T) {
	for i, holder := range rankOrder {
		for j, required := range rankOrder {
			got := holder.Dominates(required)
			want := i >= j
			if got != want {
				t.Errorf("Dominates(%s, %s) = %v, want %v", holder, required, got, want)
			}
		}
	}
}

func TestLevel_RankValues(t *testing.T) {
	wants := map[Level]int{
		Unclassified: 0,
		CUI:          1,
		Confidential: 2,
		Secret:       3,
		TopSecret:    4,
		TSSCI:        5,
	}
	for level, want := range wants {
		if got := level.Rank(); got != want {
			t.Errorf("Rank(%s) = %d, want %d", level, got, want)
		}
	}
}

func TestLevel_UnknownNeverDominates(t *testing.T) {
	bogus := Level("SUPER_SECRET")
	if bogus.Dominates(Unclassified) {
		t.Error("unknown holder level must not dominate anything")
	}
	if TopSecret.Dominates(bogus) {
		t.Error("unknown required level must be treated as TS//SCI")
	}
	if !TSSCI.Dominates(bogus) {
		t.Error("TS//SCI must dominate an unknown required level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"U", Unclassified, false},
		{"UNCLASSIFIED", Unclassified, false},
		{"S", Secret, false},
		{"SECRET", Secret, false},
		{"TS//SCI", TSSCI, false},
		{"TS_SCI", TSSCI, false},
		{"garbage", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLevelFallbacks(t *testing.T) {
	if got := LevelOrMostRestrictive("garbage"); got != TSSCI {
		t.Errorf("resource-side fallback = %s, want TS//SCI", got)
	}
	if got := LevelOrLeastPrivilege("garbage"); got != Unclassified {
		t.Errorf("subject-side fallback = %s, want U", got)
	}
	if got := LevelOrMostRestrictive("S"); got != Secret {
		t.Errorf("valid level must parse, got %s", got)
	}
}

func TestMax(t *testing.T) {
	if Max(Secret, CUI) != Secret {
		t.Error("Max(S, CUI) should be S")
	}
	if Max(CUI, Secret) != Secret {
		t.Error("Max(CUI, S) should be S")
	}
	if Max(Unclassified, Unclassified) != Unclassified {
		t.Error("Max(U, U) should be U")
	}
}

func TestBannerColor(t *testing.T) {
	if Secret.BannerColor() != "#C8102E" {
		t.Errorf("unexpected SECRET banner color %s", Secret.BannerColor())
	}
	if Level("nope").BannerColor() != TSSCI.BannerColor() {
		t.Error("unknown level should use the TS//SCI banner color")
	}
}
