package score

import (
	"regexp"
	"sort"
)

// Bias category names
const (
	BiasPolitical  = "political bias"
	BiasEmotional  = "emotional manipulation"
	BiasLoaded     = "loaded language"
	BiasGender     = "gender bias"
	BiasCorporate  = "corporate bias"
	biasSaturation = 3.0
)

type scamCategory struct {
	name    string
	weight  float64
	phrases *phraseSet
}

type biasCategory struct {
	name    string
	phrases *phraseSet
}

var scamCategories = []scamCategory{
	{"urgency", 1.0, newPhraseSet(
		"urgent", "urgently", "immediately", "act now", "act fast",
		"limited time", "expires", "expiring", "deadline", "hurry",
		"respond now", "time sensitive", "last chance",
		"final notice", "final warning",
	)},
	{"financial_pressure", 2.0, newPhraseSet(
		"wire transfer", "bitcoin", "cryptocurrency", "gift card",
		"money order", "western union", "routing number",
		"social security number", "tax refund", "unclaimed funds",
		"guaranteed return", "double your money",
	)},
	{"account_threat", 1.5, newPhraseSet(
		"account suspended", "account locked", "account disabled",
		"verify your account", "security alert", "unauthorized access",
		"suspicious activity", "arrest warrant", "legal action",
	)},
	{"too_good_to_be_true", 2.0, newPhraseSet(
		"you've won", "you have won", "lottery winner", "million dollar",
		"inheritance", "free money", "guaranteed income",
		"risk-free", "make money fast",
	)},
	{"impersonation", 2.5, newPhraseSet(
		"irs", "internal revenue service", "social security administration",
		"fbi", "microsoft support", "apple support",
		"amazon support", "paypal support",
	)},
	{"phishing_action", 1.5, newPhraseSet(
		"click here", "click the link", "download the attachment",
		"provide your", "enter your password", "update your billing",
		"verify your identity", "submit your information",
	)},
}

var scamTotalWeight = func() float64 {
	total := 0.0
	for _, c := range scamCategories {
		total += c.weight
	}
	return total
}()

var subjectivePhrases = newPhraseSet(
	"i think", "i believe", "i feel", "i consider",
	"in my opinion", "in my view", "personally", "from my perspective",
	"it seems to me", "clearly", "obviously", "undoubtedly",
	"it is clear that", "arguably", "perhaps", "probably",
)

var objectivePhrases = newPhraseSet(
	"according to", "research shows", "studies show", "study found",
	"data indicates", "evidence suggests", "researchers found",
	"experts say", "reported that", "published in", "peer-reviewed",
	"analysis shows", "survey found", "census data",
)

var emotionalWords = wordSet(
	"outrageous", "shocking", "horrifying", "disgusting", "appalling",
	"wonderful", "amazing", "fantastic", "incredible", "terrible",
	"awful", "devastating", "catastrophic", "brilliant", "pathetic",
	"despicable", "monstrous", "atrocious", "infuriating",
)

var firstPersonWords = wordSet("i", "we", "my", "our", "me", "us", "myself")

var biasCategories = []biasCategory{
	{BiasPolitical, newPhraseSet(
		"radical", "extremist", "far-left", "far-right", "socialist",
		"fascist", "liberal agenda", "conservative agenda", "fake news",
		"deep state", "globalist", "nationalist", "communist", "marxist",
	)},
	{BiasEmotional, newPhraseSet(
		"must act now", "wake up", "they don't want you to know",
		"secret agenda", "exposing the truth", "think for yourself",
		"open your eyes", "the real truth", "hidden agenda",
	)},
	{BiasLoaded, newPhraseSet(
		"regime", "invasion", "infested", "destroy", "eliminate",
		"eradicate", "thugs", "criminals", "radical agenda", "toxic",
		"epidemic", "catastrophe", "collapse", "meltdown",
	)},
	{BiasGender, newPhraseSet(
		"women are", "men are", "like a woman", "like a man",
		"typical woman", "typical man", "women can't", "men can't",
		"women should", "men should stay",
	)},
	{BiasCorporate, newPhraseSet(
		"big pharma", "big tech", "corporate agenda", "wall street",
		"the elite", "the establishment", "follow the money",
		"funded by lobbyists",
	)},
}

// StopWords are excluded from summary word-frequency tables
var StopWords = wordSet(
	"a", "an", "the", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "from", "is", "are", "was", "were", "be", "been",
	"being", "have", "has", "had", "do", "does", "did", "will", "would",
	"could", "should", "may", "might", "shall", "can", "it", "its", "this",
	"that", "these", "those", "i", "you", "he", "she", "we", "they",
	"not", "as", "if", "so", "than", "then", "when", "where", "which",
	"who", "what", "how", "all", "also", "just", "more", "their", "there",
)

// BiasCategories returns the fixed bias category names, sorted
func BiasCategories() []string {
	names := make([]string, 0, len(biasCategories))
	for _, c := range biasCategories {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names
}

// phraseSet matches whole-word phrases in lowercased text
type phraseSet struct {
	phrases  []string
	patterns []*regexp.Regexp
}

func newPhraseSet(phrases ...string) *phraseSet {
	set := &phraseSet{phrases: phrases}
	for _, p := range phrases {
		set.patterns = append(set.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(p)+`\b`))
	}
	return set
}

// Matches returns every phrase present in lower, in lexicon order
func (s *phraseSet) Matches(lower string) []string {
	var found []string
	for i, re := range s.patterns {
		if re.MatchString(lower) {
			found = append(found, s.phrases[i])
		}
	}
	return found
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
