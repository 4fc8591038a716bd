package models

import (
	"fmt"
	"strings"
)

// Column names shared by the CSV tables and the spreadsheet mirror.
const (
	ColName        = "name"
	ColCollege     = "college"
	ColRegNo       = "reg_no"
	ColEvent       = "event"
	ColCompetition = "competition"
	ColAudioFile   = "audio_file"
	ColStatus      = "status"
)

var (
	ParticipantColumns = []string{ColName, ColCollege, ColRegNo, ColEvent, ColCompetition, ColAudioFile}
	ResultColumns      = []string{ColRegNo, ColStatus}
)

type Competition string

const (
	Dance   Competition = "Dance"
	Singing Competition = "Singing"
	Chess   Competition = "Chess"
)

// Competitions lists the selectable competitions in form order.
var Competitions = []Competition{Dance, Singing, Chess}

// RequiresAudio reports whether entries must carry an audio clip.
func (c Competition) RequiresAudio() bool {
	return c == Dance || c == Singing
}

func ParseCompetition(s string) (Competition, error) {
	s = strings.TrimSpace(s)
	for _, c := range Competitions {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown competition %q", s)
}

// Status is the review state of a Result row. The string values are what
// gets written to the results file.
type Status string

const (
	StatusApproved    Status = "Approved"
	StatusNeedsReview Status = "Needs Review"
	StatusRejected    Status = "Rejected"
)

// Label is the sentence shown on the status check page.
func (s Status) Label() string {
	switch s {
	case StatusApproved:
		return "Registration Approved"
	case StatusNeedsReview:
		return "Registration Under Review"
	case StatusRejected:
		return "Registration Rejected"
	default:
		return "Registration status unknown"
	}
}

func (s Status) Valid() bool {
	return s == StatusApproved || s == StatusNeedsReview || s == StatusRejected
}

type Participant struct {
	Name        string
	College     string
	RegNo       string
	Event       string
	Competition Competition
	AudioFile   string // empty for competitions without audio
}

func (p Participant) Record() map[string]string {
	return map[string]string{
		ColName:        p.Name,
		ColCollege:     p.College,
		ColRegNo:       p.RegNo,
		ColEvent:       p.Event,
		ColCompetition: string(p.Competition),
		ColAudioFile:   p.AudioFile,
	}
}

func (p Participant) Row() []interface{} {
	return []interface{}{p.Name, p.College, p.RegNo, p.Event, string(p.Competition), p.AudioFile}
}

func ParticipantFromRecord(rec map[string]string) Participant {
	return Participant{
		Name:        rec[ColName],
		College:     rec[ColCollege],
		RegNo:       rec[ColRegNo],
		Event:       rec[ColEvent],
		Competition: Competition(rec[ColCompetition]),
		AudioFile:   rec[ColAudioFile],
	}
}

type Result struct {
	RegNo  string
	Status Status
}

func (r Result) Record() map[string]string {
	return map[string]string{
		ColRegNo:  r.RegNo,
		ColStatus: string(r.Status),
	}
}

func (r Result) Row() []interface{} {
	return []interface{}{r.RegNo, string(r.Status)}
}

func ResultFromRecord(rec map[string]string) Result {
	return Result{RegNo: rec[ColRegNo], Status: Status(rec[ColStatus])}
}
