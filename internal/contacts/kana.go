package contacts

import (
	"strings"
	"unicode"
)

// kanaReadings maps common name kanji to hiragana readings. The table is
// deliberately small: it covers frequent Japanese surnames and given names
// so the UI can pre-fill the kana fields, and falls through to manual
// entry for anything else.
var kanaReadings = map[string]string{
	// Surnames.
	"田中": "たなか",
	"山田": "やまだ",
	"佐藤": "さとう",
	"鈴木": "すずき",
	"高橋": "たかはし",
	"伊藤": "いとう",
	"渡辺": "わたなべ",
	"中村": "なかむら",
	"小林": "こばやし",
	"加藤": "かとう",
	"吉田": "よしだ",
	"松本": "まつもと",
	"井上": "いのうえ",
	"木村": "きむら",

	// Given names.
	"太郎": "たろう",
	"次郎": "じろう",
	"三郎": "さぶろう",
	"一郎": "いちろう",
	"裕介": "ゆうすけ",
	"健太": "けんた",
	"翔太": "しょうた",
	"智也": "ともや",
	"和也": "かずや",
	"大輔": "だいすけ",
	"康介": "こうすけ",
	"直樹": "なおき",
	"花子": "はなこ",
	"美子": "みこ",
	"裕子": "ゆうこ",
	"真理": "まり",
	"由美": "ゆみ",

	// Single characters.
	"田": "た",
	"山": "やま",
	"川": "がわ",
	"太": "た",
	"美": "み",
	"愛": "あい",
	"光": "ひかり",
	"恵": "めぐみ",
	"桜": "さくら",
}

// maxReadingLen is the longest key (in runes) in kanaReadings.
const maxReadingLen = 2

// ConvertToKana returns the hiragana reading of a name. Kana and non-kanji
// characters pass through unchanged; kanji are matched against the reading
// table longest-entry-first. Kanji without a table entry contribute
// nothing, so a fully unknown name converts to the empty string.
func ConvertToKana(s string) string {
	runes := []rune(s)

	var b strings.Builder

	for i := 0; i < len(runes); {
		if !IsKanji(runes[i]) {
			b.WriteRune(runes[i])
			i++

			continue
		}

		matched := false

		for n := maxReadingLen; n >= 1; n-- {
			if i+n > len(runes) {
				continue
			}

			if reading, ok := kanaReadings[string(runes[i:i+n])]; ok {
				b.WriteString(reading)
				i += n
				matched = true

				break
			}
		}

		if !matched {
			i++
		}
	}

	return b.String()
}

// HiraganaToKatakana converts hiragana runes to katakana, leaving all
// other characters untouched.
func HiraganaToKatakana(s string) string {
	return strings.Map(func(r rune) rune {
		if IsHiragana(r) {
			return r + kanaOffset
		}

		return r
	}, s)
}

// KatakanaToHiragana converts katakana runes to hiragana, leaving all
// other characters untouched.
func KatakanaToHiragana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ァ' && r <= 'ヶ' {
			return r - kanaOffset
		}

		return r
	}, s)
}

// kanaOffset is the distance between the hiragana and katakana Unicode blocks.
const kanaOffset = 'ア' - 'あ'

// IsHiragana reports whether r is in the hiragana block.
func IsHiragana(r rune) bool {
	return r >= 'ぁ' && r <= 'ゖ'
}

// IsKatakana reports whether r is in the katakana block (excluding
// halfwidth forms).
func IsKatakana(r rune) bool {
	return r >= 'ァ' && r <= 'ヺ' || r == 'ー'
}

// IsKanji reports whether r is a CJK ideograph.
func IsKanji(r rune) bool {
	return unicode.Is(unicode.Han, r)
}
