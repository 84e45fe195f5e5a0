// Package basedata stamps exported artifacts (result files, API payloads)
// with the producing program and time, so a result file found later can be
// traced back to a build.
package basedata

import (
	"time"

	"github.com/beliefdag/beliefdag/modules/version"
)

type Common struct {
	Program   string    `json:"program,omitempty"`
	Version   string    `json:"version,omitempty"`
	Commit    string    `json:"commit,omitempty"`
	Generated time.Time `json:"generated,omitempty"`
}

func GetCommonData() Common {
	return Common{
		Program:   version.Program,
		Version:   version.Version,
		Commit:    version.Commit,
		Generated: time.Now(),
	}
}
