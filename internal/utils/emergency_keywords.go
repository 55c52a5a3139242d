package utils

import (
	"strings"
	"unicode"
)

// emergencyKeywords are phrases that always mean emergency care, in English,
// romanised Hindi and Devanagari. Latin phrases match on word boundaries;
// Devanagari phrases match as substrings because inflection attaches to them.
var emergencyKeywords = []string{
	// cardiac
	"chest pain", "seena dard", "seene mein dard", "seene me dard", "heart attack", "dil ka daura",
	"सीने में दर्द", "छाती में दर्द", "दिल का दौरा",

	// breathing
	"difficulty breathing", "breathing difficulty", "shortness of breath", "can't breathe",
	"cannot breathe", "can not breathe", "not able to breathe", "saans nahi", "saans lene mein takleef",
	"saans phool", "सांस नहीं", "सांस लेने में तकलीफ", "साँस नहीं",

	// consciousness
	"unconscious", "behosh", "passed out", "fainted and not waking", "बेहोश",

	// seizure
	"seizure", "seizures", "convulsion", "convulsions", "mirgi", "मिर्गी", "दौरा पड़",
	"having fits", "had fits", "fits aa", "fits aaya", "fits aaye", "fits aate", "fits pad", "fits pada",
	"fits pade", "fits padte", "fit aaya", "fit pada",

	// stroke
	"stroke", "paralysis", "face drooping", "lakwa", "लकवा",

	// bleeding
	"severe bleeding", "heavy bleeding", "tez khoon", "bahut khoon", "बहुत खून", "तेज़ खून",

	// obstetric
	"labour pain", "labor pain", "prasav dard", "water broke", "waters broke", "प्रसव पीड़ा", "प्रसव दर्द",

	// poisoning, bites, allergy
	"poisoning", "poison", "overdose", "zeher", "zehar", "snake bite", "snakebite", "saanp ne kaata",
	"saap ne kata", "anaphylaxis", "ज़हर", "जहर", "सांप ने काटा", "साँप ने काटा",
}

// MatchEmergencyKeywords returns the emergency phrases present in text, in
// list order. A nil result means no emergency keyword was found. A phrase
// denied in English before it ("no chest pain") or in Hindi after it
// ("seene mein dard nahi hai") does not count.
func MatchEmergencyKeywords(text string) []string {
	lower := " " + normalizePhraseText(text) + " "
	if strings.TrimSpace(lower) == "" {
		return nil
	}

	for _, phrase := range benignPhrases {
		lower = strings.ReplaceAll(lower, " "+phrase+" ", " ")
	}

	var matched []string
	for _, kw := range emergencyKeywords {
		needle := kw
		if isASCII(kw) {
			needle = " " + kw + " "
		}
		if containsAffirmed(lower, needle) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// benignPhrases contain an emergency keyword but are not emergencies.
var benignPhrases = []string{
	"food poisoning", "food poison",
	"poison ivy", "poison oak", "poison sumac",
	"coughing fits", "cough fits", "sneezing fits", "laughing fits",
	"khansi ke fits", "khaansi ke fits", "chheenk ke fits",
}

// negations deny the phrase that follows them
var negations = []string{" no", " not", " without", " denies", " never"}

// postNegations deny the phrase in front of them (Hindi word order)
var postNegations = map[string]bool{
	"nahi": true, "nahin": true, "nahee": true, "nhi": true, "nai": true,
	"नहीं": true, "नही": true,
}

// negationFillers may sit between a phrase and its Hindi negation
var negationFillers = map[string]bool{
	"hai": true, "h": true, "ho": true, "hua": true, "hui": true, "to": true, "toh": true,
	"bilkul": true, "koi": true, "bhi": true, "abhi": true, "ab": true,
	"है": true, "हो": true, "हुआ": true, "तो": true, "बिल्कुल": true, "कोई": true, "भी": true, "अभी": true,
}

// tagWords before "na" make it a question tag ("dard hai na?"), not a denial
var tagWords = map[string]bool{"hai": true, "h": true, "tha": true, "thi": true, "ho": true}

// persistVerbs after a negation describe a symptom that will not stop
// ("dard nahi ruk raha"), which affirms it.
var persistVerbs = map[string]bool{
	"ruk": true, "ruka": true, "ruki": true, "rukta": true, "rukti": true, "rukega": true,
	"ja": true, "jaa": true, "jata": true, "jati": true, "gaya": true, "gayi": true,
	"tham": true, "thama": true, "thamta": true, "band": true,
	"रुक": true, "रुका": true, "रुकता": true, "रुकती": true, "जा": true, "गया": true, "थम": true,
}

const postNegationWindow = 3

// containsAffirmed reports whether needle occurs at least once without a
// negation around it.
func containsAffirmed(haystack, needle string) bool {
	for from := 0; ; {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return false
		}
		idx += from

		rest := haystack[idx+len(needle):]
		if !strings.HasSuffix(needle, " ") {
			// Devanagari phrases can end inside an inflected word
			if sp := strings.IndexByte(rest, ' '); sp >= 0 {
				rest = rest[sp:]
			} else {
				rest = ""
			}
		}

		if !negatedBefore(haystack[:idx]) && !negatedAfter(rest) {
			return true
		}
		from = idx + 1
	}
}

func negatedBefore(before string) bool {
	for _, neg := range negations {
		if strings.HasSuffix(before, neg) {
			return true
		}
	}
	return false
}

func negatedAfter(after string) bool {
	tokens := strings.Fields(after)
	prev := ""
	for i, tok := range tokens {
		if i >= postNegationWindow {
			return false
		}
		if tok == "na" && tagWords[prev] {
			return false
		}
		if postNegations[tok] || tok == "na" {
			return i+1 >= len(tokens) || !persistVerbs[tokens[i+1]]
		}
		if !negationFillers[tok] {
			return false
		}
		prev = tok
	}
	return false
}

// normalizePhraseText lowercases text and turns Latin punctuation into
// spaces so word-bounded matching sees "pain," as "pain". Apostrophes are
// kept for "can't".
func normalizePhraseText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r == '\'' || r == '’':
			b.WriteRune('\'')
		case r < unicode.MaxASCII && !unicode.IsLetter(r) && !unicode.IsDigit(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= unicode.MaxASCII {
			return false
		}
	}
	return true
}
