package dedup

// stopWords are dropped during normalization. English plus the handful of
// high-frequency feed-title fillers that kept producing false overlaps.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"this": true, "that": true, "was": true, "are": true, "has": true,
	"have": true, "had": true, "its": true, "his": true, "her": true,
	"will": true, "after": true, "over": true, "into": true, "out": true,
	"about": true, "not": true, "but": true, "than": true, "then": true,
	"who": true, "what": true, "when": true, "where": true, "why": true,
	"how": true, "more": true, "most": true, "some": true, "all": true,
	"new": true, "says": true, "said": true, "amid": true, "near": true,
	"breaking": true, "update": true, "live": true, "latest": true,
	"news": true, "report": true, "reports": true, "video": true,
}

// entityVocabulary lists high-signal tokens used for the similarity boost:
// incident-type words, numeric/unit words, and recurring place names. Two
// headlines sharing a couple of these almost always describe the same event
// even when the raw token overlap is modest.
var entityVocabulary = map[string]struct{}{
	// incident types
	"earthquake": {}, "flood": {}, "flooding": {}, "fire": {}, "wildfire": {},
	"explosion": {}, "blast": {}, "crash": {}, "collision": {}, "derailment": {},
	"shooting": {}, "stabbing": {}, "attack": {}, "bombing": {}, "landslide": {},
	"typhoon": {}, "hurricane": {}, "storm": {}, "tornado": {}, "tsunami": {},
	"drought": {}, "outbreak": {}, "epidemic": {}, "pandemic": {}, "collapse": {},
	"evacuation": {}, "rescue": {}, "arrest": {}, "raid": {}, "protest": {},
	"strike": {}, "riot": {}, "scandal": {}, "fraud": {}, "corruption": {},
	"election": {}, "referendum": {}, "resignation": {}, "impeachment": {},
	"ceasefire": {}, "invasion": {}, "airstrike": {}, "sanctions": {},

	// casualty / magnitude words
	"dead": {}, "death": {}, "deaths": {}, "killed": {}, "injured": {},
	"wounded": {}, "missing": {}, "victims": {}, "casualties": {},
	"magnitude": {}, "million": {}, "billion": {}, "percent": {},
	"thousands": {}, "hundreds": {}, "dozens": {},

	// recurring place names
	"washington": {}, "london": {}, "paris": {}, "berlin": {}, "moscow": {},
	"kyiv": {}, "beijing": {}, "tokyo": {}, "seoul": {}, "delhi": {},
	"bangkok": {}, "jakarta": {}, "manila": {}, "singapore": {}, "sydney": {},
	"cairo": {}, "istanbul": {}, "tehran": {}, "baghdad": {}, "kabul": {},
	"gaza": {}, "jerusalem": {}, "brussels": {}, "geneva": {}, "ukraine": {},
	"russia": {}, "china": {}, "taiwan": {}, "israel": {}, "iran": {},
}
