package tts

import "strings"

// Language codes resolved by the heuristic.
const (
	LangEnglish    = "en"
	LangVietnamese = "vi"
)

// vietnameseDiacritics is the alphabet of characters that only occur in
// Vietnamese text. Plain ASCII vowels are deliberately absent.
const vietnameseDiacritics = "ăâđêôơưĂÂĐÊÔƠƯàảãáạằẳẵắặầẩẫấậèẻẽéẹềểễếệìỉĩíịòỏõóọồổỗốộờởỡớợùủũúụừửữứựỳỷỹýỵ"

// DetectLanguage classifies text as Vietnamese or English by counting
// Vietnamese diacritic characters. Vietnamese wins when the count reaches
// 3, or when any diacritics appear and make up more than 2% of the text.
func DetectLanguage(text string) string {
	if text == "" {
		return LangEnglish
	}
	count := 0
	length := 0
	for _, r := range text {
		length++
		if strings.ContainsRune(vietnameseDiacritics, r) {
			count++
		}
	}
	if count >= 3 || (count > 0 && float64(count)/float64(length) > 0.02) {
		return LangVietnamese
	}
	return LangEnglish
}

// VoiceMap maps resolved languages to configured provider voices.
type VoiceMap struct {
	// English is the voice for English replies.
	English string

	// Vietnamese is the voice for Vietnamese replies.
	Vietnamese string

	// Default is used when the language-specific voice is unset.
	Default string
}

// Pick resolves the voice for a request. An explicit non-auto request wins;
// otherwise the language-specific voice, then the default.
func (m VoiceMap) Pick(lang, requested string) string {
	if requested != "" && requested != VoiceAuto {
		return requested
	}
	var voice string
	switch lang {
	case LangVietnamese:
		voice = m.Vietnamese
	default:
		voice = m.English
	}
	if voice == "" {
		voice = m.Default
	}
	return voice
}
