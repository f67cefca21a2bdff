package clubs

import (
	"errors"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
)

// DefaultYearDuration is one 365-day year in milliseconds.
const DefaultYearDuration domain.Moment = 31_536_000_000

// Config holds the host-supplied engine constants.
type Config struct {
	// CreationFee is reserved from the owner when a club is created.
	CreationFee domain.Balance
	// MaxYears bounds the years purchasable in a single join.
	MaxYears domain.Years
	// YearDuration is the length of one membership year in clock units (ms).
	YearDuration domain.Moment
}

func DefaultConfig() Config {
	return Config{
		CreationFee:  100,
		MaxYears:     100,
		YearDuration: DefaultYearDuration,
	}
}

func (c Config) Validate() error {
	if c.MaxYears == 0 {
		return errors.New("max years must be positive")
	}
	if c.YearDuration == 0 {
		return errors.New("year duration must be positive")
	}
	return nil
}
