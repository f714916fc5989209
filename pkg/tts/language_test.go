package tts

import (
	"strings"
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", LangEnglish},
		{"plain english", "Hello, how are you today?", LangEnglish},
		{"no diacritics at all", strings.Repeat("good morning ", 50), LangEnglish},
		{"three diacritics", "Xin chào các bạn", LangVietnamese},
		{"fully vietnamese", "Tôi đang học tiếng Anh mỗi ngày", LangVietnamese},
		{"one diacritic short text", "cà phê please", LangVietnamese}, // 2 marks in 13 runes > 2%
		{"single mark long text", "é" + strings.Repeat("a", 200), LangEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

// Exactly two diacritics must resolve by proportion, not absolute count.
func TestDetectLanguageProportionBranch(t *testing.T) {
	t.Run("two marks in short text", func(t *testing.T) {
		// 2 marks out of 20 runes = 10% > 2% → Vietnamese
		text := "ăâ" + strings.Repeat("x", 18)
		if got := DetectLanguage(text); got != LangVietnamese {
			t.Errorf("expected vi, got %q", got)
		}
	})

	t.Run("two marks in very long text", func(t *testing.T) {
		// 2 marks out of 202 runes < 2% → English despite diacritics
		text := "ăâ" + strings.Repeat("x", 200)
		if got := DetectLanguage(text); got != LangEnglish {
			t.Errorf("expected en, got %q", got)
		}
	})

	t.Run("three marks always vietnamese", func(t *testing.T) {
		text := "ăâđ" + strings.Repeat("x", 1000)
		if got := DetectLanguage(text); got != LangVietnamese {
			t.Errorf("expected vi, got %q", got)
		}
	})
}

func TestVoiceMapPick(t *testing.T) {
	m := VoiceMap{English: "nova", Vietnamese: "coral", Default: "alloy"}

	tests := []struct {
		name      string
		lang      string
		requested string
		want      string
	}{
		{"explicit voice wins", LangVietnamese, "shimmer", "shimmer"},
		{"auto resolves english", LangEnglish, VoiceAuto, "nova"},
		{"auto resolves vietnamese", LangVietnamese, VoiceAuto, "coral"},
		{"empty request resolves", LangEnglish, "", "nova"},
		{"unknown lang uses english slot", "fr", VoiceAuto, "nova"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Pick(tt.lang, tt.requested); got != tt.want {
				t.Errorf("Pick(%q, %q) = %q, want %q", tt.lang, tt.requested, got, tt.want)
			}
		})
	}

	t.Run("falls back to default", func(t *testing.T) {
		m := VoiceMap{Default: "alloy"}
		if got := m.Pick(LangVietnamese, VoiceAuto); got != "alloy" {
			t.Errorf("expected alloy, got %q", got)
		}
	})
}
