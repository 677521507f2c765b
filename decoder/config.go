/*
DESCRIPTION
  config.go defines Config, the Driver's construction-time knobs, shaped
  like the teacher's revid/config.Config: plain fields, a Logger, and
  iota-enumerated behaviour switches rather than functional options.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/
package decoder

import (
	"github.com/ausocean/h264decoder/dpb"
	"github.com/ausocean/h264decoder/level"
	"github.com/ausocean/utils/logging"
)

// Config holds the Driver's construction-time configuration.
type Config struct {
	// Logger receives warnings for skipped references, MMCO misses and
	// broken POC ordering, and debug-level step tracing. May be nil.
	Logger logging.Logger

	// Compliance selects the bump level per the Driver's compliance table:
	// Strict -> NormalLatency, Normal -> LowLatency, Flexible ->
	// VeryLowLatency. Auto picks VeryLowLatency for baseline live content,
	// LowLatency for other live content, and NormalLatency otherwise.
	Compliance level.Compliance

	// Live hints whether the stream is live, used by the Auto compliance
	// resolution and by a back end's GetPreferredOutputDelay.
	Live bool
}

// bumpLevel resolves cfg's compliance/live settings and the active SPS's
// profile into a concrete dpb.BumpLevel.
func (c Config) bumpLevel(profile uint8) dpb.BumpLevel {
	switch c.Compliance {
	case level.Strict:
		return dpb.NormalLatency
	case level.Normal:
		return dpb.LowLatency
	case level.Flexible:
		return dpb.VeryLowLatency
	default: // Auto
		if !c.Live {
			return dpb.NormalLatency
		}
		if profile == 66 || profile == 83 {
			return dpb.VeryLowLatency
		}
		return dpb.LowLatency
	}
}
