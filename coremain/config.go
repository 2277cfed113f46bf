package coremain

import (
	"time"

	"github.com/pmkol/ringlist/mlog"
	"github.com/pmkol/ringlist/pkg/workload"
)

type Config struct {
	Log       mlog.LogConfig  `yaml:"log"`
	Include   []string        `yaml:"include"`
	API       APIConfig       `yaml:"api"`
	Soak      SoakConfig      `yaml:"soak"`
	Workloads []workload.Args `yaml:"workloads"`
}

type APIConfig struct {
	// HTTP is the listen address of the metrics and pprof server.
	// Empty disables it.
	HTTP string `yaml:"http"`

	// ReportTTL is how long the latest report of a workload stays
	// available at /reports/<tag>. Default is 10m.
	ReportTTL time.Duration `yaml:"report_ttl"`
}

const defaultReportTTL = 10 * time.Minute

func (c *APIConfig) reportTTL() time.Duration {
	if c.ReportTTL > 0 {
		return c.ReportTTL
	}
	return defaultReportTTL
}

// SoakConfig repeats all workloads in rounds.
type SoakConfig struct {
	// Interval between two rounds. Zero runs a single round.
	Interval time.Duration `yaml:"interval"`

	// Rounds limits the number of rounds. Zero means no limit.
	Rounds int `yaml:"rounds"`

	// ReportFile, if set, receives every round's reports in yaml instead
	// of stdout.
	ReportFile string `yaml:"report_file"`
}

func (c *SoakConfig) lastRound(round int) bool {
	return c.Interval <= 0 || (c.Rounds > 0 && round >= c.Rounds)
}
