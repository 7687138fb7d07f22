package deform

import (
	"strconv"

	"github.com/dlclark/regexp2"
)

// GenderRace is the four digit body code of a character model (c0101 is 101).
type GenderRace uint16

const GenderRaceUnknown GenderRace = 0

var knownGenderRaces = map[GenderRace]string{
	101: "MidlanderMale", 104: "MidlanderMaleNpc",
	201: "MidlanderFemale", 204: "MidlanderFemaleNpc",
	301: "HighlanderMale", 304: "HighlanderMaleNpc",
	401: "HighlanderFemale", 404: "HighlanderFemaleNpc",
	501: "ElezenMale", 504: "ElezenMaleNpc",
	601: "ElezenFemale", 604: "ElezenFemaleNpc",
	701: "MiqoteMale", 704: "MiqoteMaleNpc",
	801: "MiqoteFemale", 804: "MiqoteFemaleNpc",
	901: "RoegadynMale", 904: "RoegadynMaleNpc",
	1001: "RoegadynFemale", 1004: "RoegadynFemaleNpc",
	1101: "LalafellMale", 1104: "LalafellMaleNpc",
	1201: "LalafellFemale", 1204: "LalafellFemaleNpc",
	1301: "AuRaMale", 1304: "AuRaMaleNpc",
	1401: "AuRaFemale", 1404: "AuRaFemaleNpc",
	1501: "HrothgarMale", 1504: "HrothgarMaleNpc",
	1601: "HrothgarFemale", 1604: "HrothgarFemaleNpc",
	1701: "VieraMale", 1704: "VieraMaleNpc",
	1801: "VieraFemale", 1804: "VieraFemaleNpc",
	9104: "UnknownMaleNpc", 9204: "UnknownFemaleNpc",
}

func KnownGenderRace(code GenderRace) bool {
	_, ok := knownGenderRaces[code]
	return ok
}

func (g GenderRace) String() string {
	if name, ok := knownGenderRaces[g]; ok {
		return name
	}
	if g == GenderRaceUnknown {
		return "Unknown"
	}
	return strconv.Itoa(int(g))
}

// cXXXX not preceded by a letter
var raceCodeRegexp = regexp2.MustCompile(`(?<!\p{L})c(?<racecode>\d{4})`, regexp2.ExplicitCapture)

func ParseRaceCode(path string) GenderRace {
	m, err := raceCodeRegexp.FindStringMatch(path)
	if err != nil || m == nil {
		return GenderRaceUnknown
	}
	code, err := strconv.ParseUint(m.GroupByName("racecode").String(), 10, 16)
	if err != nil {
		return GenderRaceUnknown
	}
	return GenderRace(code)
}
