package atc

import (
	"fmt"
	"strings"

	"github.com/flightcore/copilot/internal/flightdata"
)

// phoneticAlphabet translates letters to the standard phonetic form
// (spec §4.2: "letters and numbers may be translated to a standard
// phonetic form").
var phoneticAlphabet = map[rune]string{
	'A': "ALPHA", 'B': "BRAVO", 'C': "CHARLIE", 'D': "DELTA", 'E': "ECHO",
	'F': "FOXTROT", 'G': "GOLF", 'H': "HOTEL", 'I': "INDIA", 'J': "JULIETT",
	'K': "KILO", 'L': "LIMA", 'M': "MIKE", 'N': "NOVEMBER", 'O': "OSCAR",
	'P': "PAPA", 'Q': "QUEBEC", 'R': "ROMEO", 'S': "SIERRA", 'T': "TANGO",
	'U': "UNIFORM", 'V': "VICTOR", 'W': "WHISKEY", 'X': "XRAY", 'Y': "YANKEE",
	'Z': "ZULU",
}

// Phonetic spells out a taxiway/runway identifier letter by letter in
// the standard phonetic alphabet, passing digits through unchanged.
func Phonetic(ident string) string {
	var words []string
	for _, r := range strings.ToUpper(ident) {
		if word, ok := phoneticAlphabet[r]; ok {
			words = append(words, word)
		} else {
			words = append(words, string(r))
		}
	}
	return strings.Join(words, " ")
}

// phraseTaxiClearance formats the clearance instruction emitted when
// a route is received (spec §4.2 "a formatted instruction is emitted
// on each major transition").
func phraseTaxiClearance(runway string, route *flightdata.Route) string {
	taxiways := make([]string, len(route.Taxiways))
	for i, tw := range route.Taxiways {
		taxiways[i] = Phonetic(tw)
	}
	return fmt.Sprintf("taxi to runway %s via %s", PhoneticRunway(runway), strings.Join(taxiways, " "))
}

// phraseClearedForTakeoff formats the takeoff clearance instruction.
func phraseClearedForTakeoff(runway string) string {
	return fmt.Sprintf("runway %s, cleared for takeoff", PhoneticRunway(runway))
}
