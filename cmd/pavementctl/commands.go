package main

import (
	"context"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pavement/pavement-api/internal/models"
	"github.com/pavement/pavement-api/internal/utils"
)

var queryFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "start",
		Usage: "the range start, e.g. 2017-03-06T08:00:00Z; defaults to the configured range",
	},
	&cli.StringFlag{
		Name:  "end",
		Usage: "the range end (exclusive); defaults to the configured range",
	},
	&cli.StringSliceFlag{
		Name:    "spaces",
		Aliases: []string{"s"},
		Usage:   "comma separated space ids",
	},
	&cli.StringSliceFlag{
		Name:  "curb",
		Usage: "a curb as space separated ids, e.g. --curb \"A1 A2\"; repeat for more curbs",
	},
	&cli.StringFlag{
		Name:  "day",
		Usage: "roll the series up by hour of the given parking day, e.g. monday",
	},
}

var occupancyCommand = &cli.Command{
	Name:  "occupancy",
	Usage: "fraction of capacity in use",
	Flags: append(queryFlags, &cli.BoolFlag{
		Name:  "heatmap",
		Usage: "one value per space or curb over the whole range",
	}),
	Action: func(c *cli.Context) error {
		return runQuery(c, models.MetricOccupancy, "heatmap")
	},
}

var revenueCommand = &cli.Command{
	Name:  "revenue",
	Usage: "revenue per bucket",
	Flags: append(queryFlags, &cli.BoolFlag{
		Name:    "sum",
		Aliases: []string{"heatmap"},
		Usage:   "total revenue per space or curb",
	}),
	Action: func(c *cli.Context) error {
		return runQuery(c, models.MetricRevenue, "sum")
	},
}

var timeCommand = &cli.Command{
	Name:  "time",
	Usage: "mean session length in hours",
	Flags: append(queryFlags, &cli.BoolFlag{
		Name:  "heatmap",
		Usage: "one value per space or curb over the whole range",
	}),
	Action: func(c *cli.Context) error {
		return runQuery(c, models.MetricDuration, "heatmap")
	},
}

var spacesCommand = &cli.Command{
	Name:  "spaces",
	Usage: "list every known space id",
	Action: func(c *cli.Context) error {
		ctx, cancel := context.WithTimeout(c.Context, timeout)
		defer cancel()

		svc, closeFn, err := connect(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		spaces, err := svc.ListSpaces(ctx)
		if err != nil {
			return err
		}
		return jsonOutput(c.App.Writer, map[string][]string{"data": spaces})
	},
}

var cacheCommand = &cli.Command{
	Name:  "cache",
	Usage: "manage the response cache",
	Subcommands: []*cli.Command{
		{
			Name:  "clear",
			Usage: "drop every cached response, e.g. after a data reload",
			Action: func(c *cli.Context) error {
				ctx, cancel := context.WithTimeout(c.Context, timeout)
				defer cancel()

				removed, err := clearCache(ctx)
				if err != nil {
					return err
				}
				return jsonOutput(c.App.Writer, map[string]int{"removed": removed})
			},
		},
	},
}

func runQuery(c *cli.Context, metric models.Metric, summaryFlag string) error {
	query, err := buildQuery(c, metric, summaryFlag)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, timeout)
	defer cancel()

	svc, closeFn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := svc.Execute(ctx, query)
	if err != nil {
		return err
	}
	return jsonOutput(c.App.Writer, resp)
}

// buildQuery turns command flags into a query. --day takes precedence over the
// summary flag, matching the HTTP API.
func buildQuery(c *cli.Context, metric models.Metric, summaryFlag string) (models.ParkingQuery, error) {
	query := models.ParkingQuery{Metric: metric, Mode: models.ModeBucketed, Selector: models.AllSpaces()}

	if start := c.String("start"); start != "" {
		t, err := utils.ParseDateTime("start", start)
		if err != nil {
			return query, err
		}
		query.Range.Start = t
	}
	if end := c.String("end"); end != "" {
		t, err := utils.ParseDateTime("end", end)
		if err != nil {
			return query, err
		}
		query.Range.End = t
	}

	spaces := c.StringSlice("spaces")
	curbs := c.StringSlice("curb")
	switch {
	case len(spaces) > 0 && len(curbs) > 0:
		return query, utils.NewValidationError("--spaces and --curb cannot be combined")
	case len(curbs) > 0:
		grouped := make([][]string, 0, len(curbs))
		for _, curb := range curbs {
			members := strings.Fields(curb)
			if len(members) == 0 {
				return query, utils.NewFieldError("curb", "empty curb")
			}
			grouped = append(grouped, members)
		}
		query.Selector = models.GroupedSpaces(grouped...)
	case len(spaces) > 0:
		ids := make([]string, 0, len(spaces))
		for _, id := range spaces {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			query.Selector = models.FlatSpaces(ids...)
		}
	}

	if day := c.String("day"); day != "" {
		weekday, err := utils.ParseWeekday(day)
		if err != nil {
			return query, err
		}
		query.Mode = models.ModeDay
		query.Day = &weekday
	} else if c.Bool(summaryFlag) {
		query.Mode = models.ModeHeatmap
	}
	return query, nil
}
