package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/aristath/markowitz/internal/modules/portfolio"
)

// windowFlags are the instrument list and date window flags
type windowFlags struct {
	instruments []string
	start       string
	end         string
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.instruments, "instruments", "i", nil, "comma separated instrument symbols")
	cmd.Flags().StringVar(&f.start, "start", "", "first day of the window (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "day after the window (YYYY-MM-DD, default: today)")
	_ = cmd.MarkFlagRequired("instruments")
	_ = cmd.MarkFlagRequired("start")
}

func (f *windowFlags) request(now time.Time) (portfolio.Request, error) {
	start, err := time.Parse(domain.DateLayout, f.start)
	if err != nil {
		return portfolio.Request{}, domain.InvalidInputf("--start must be YYYY-MM-DD, got %q", f.start)
	}

	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	if f.end != "" {
		end, err = time.Parse(domain.DateLayout, f.end)
		if err != nil {
			return portfolio.Request{}, domain.InvalidInputf("--end must be YYYY-MM-DD, got %q", f.end)
		}
	}

	req := portfolio.Request{Instruments: f.instruments, Start: start, End: end}
	return req, req.Validate()
}

// seedFlag reports the --seed value only when the flag was given
func seedFlag(cmd *cobra.Command, seed uint64) *uint64 {
	if !cmd.Flags().Changed("seed") {
		return nil
	}
	return &seed
}
