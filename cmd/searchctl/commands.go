package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Daption-ciray/proapp/internal/app"
	"github.com/Daption-ciray/proapp/internal/config"
	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/extractor"
	"github.com/Daption-ciray/proapp/pkg/logger"
)

// withComponents builds the backends configured in the env file, runs fn and
// releases everything afterwards.
func withComponents(ctx context.Context, cmd *cli.Command, fn func(*app.Components) error) error {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.NewText(cmd.String("log-level"), os.Stderr)

	c, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	runErr := fn(c)
	if err := c.Close(); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if v == "" {
		return "", fmt.Errorf("missing %s argument", name)
	}
	return v, nil
}

// searchFilters maps the filter flags onto the lenient filter parser so
// that malformed prices are ignored the same way the HTTP API ignores them.
func searchFilters(cmd *cli.Command) domain.FilterSet {
	raw := make(map[string]any)
	for flag, key := range map[string]string{
		"category":  domain.FilterCategory,
		"brand":     domain.FilterBrand,
		"color":     domain.FilterColor,
		"audience":  domain.FilterTargetAudience,
		"min-price": domain.FilterMinPrice,
		"max-price": domain.FilterMaxPrice,
	} {
		if cmd.IsSet(flag) {
			raw[key] = cmd.String(flag)
		}
	}
	return domain.ParseFilterSet(raw)
}

func searchAction(ctx context.Context, cmd *cli.Command) error {
	req := domain.SearchRequest{
		Query:   strings.TrimSpace(strings.Join(cmd.Args().Slice(), " ")),
		Filters: searchFilters(cmd),
		Limit:   cmd.Int("limit"),
	}
	return withComponents(ctx, cmd, func(c *app.Components) error {
		return printJSON(cmd.Root().Writer, c.Search.Search(ctx, req, cmd.String("user")))
	})
}

func chatAction(ctx context.Context, cmd *cli.Command) error {
	message, err := requireArg(cmd, "message")
	if err != nil {
		return err
	}
	return withComponents(ctx, cmd, func(c *app.Components) error {
		req, _ := extractor.NewResilient(c.Extractor, c.Logger()).Extract(ctx, message)
		if limit := cmd.Int("limit"); limit > 0 {
			req.Limit = limit
		}
		res := c.Search.Search(ctx, req, cmd.String("user"))
		return printJSON(cmd.Root().Writer, map[string]any{
			"interpreted": req,
			"results":     res,
		})
	})
}

func suggestAction(ctx context.Context, cmd *cli.Command) error {
	prefix, err := requireArg(cmd, "prefix")
	if err != nil {
		return err
	}
	return withComponents(ctx, cmd, func(c *app.Components) error {
		return printJSON(cmd.Root().Writer, c.Search.Suggest(ctx, prefix))
	})
}

func importAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("missing file argument")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return withComponents(ctx, cmd, func(c *app.Components) error {
		if err := c.Search.ImportProducts(ctx, products); err != nil {
			return err
		}
		return printJSON(cmd.Root().Writer, map[string]int{"indexed": len(products)})
	})
}

func preferencesAction(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.Args().First()
	return withComponents(ctx, cmd, func(c *app.Components) error {
		prefs, err := c.Preferences.Get(ctx, userID)
		if err != nil {
			return err
		}
		return printJSON(cmd.Root().Writer, prefs)
	})
}

func historyAction(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.Args().First()
	return withComponents(ctx, cmd, func(c *app.Components) error {
		entries, err := c.Preferences.History(ctx, userID, cmd.Int("limit"))
		if err != nil {
			return err
		}
		return printJSON(cmd.Root().Writer, entries)
	})
}

func analyzeAction(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.Args().First()
	return withComponents(ctx, cmd, func(c *app.Components) error {
		analysis, err := c.Preferences.Analyze(ctx, userID)
		if err != nil {
			return err
		}
		return printJSON(cmd.Root().Writer, analysis)
	})
}
