package run

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xhd2015/kool/pkgs/web"
	"github.com/xhd2015/less-gen/flags"

	"github.com/xhd2015/finchat-e2e/server/browser"
	"github.com/xhd2015/finchat-e2e/server/logs"
	"github.com/xhd2015/finchat-e2e/server/readiness"
)

var navigateHelp = `
Usage: finchat-e2e navigate [options]

Finds the frontend (waiting for it if it is still starting), opens it in
Chrome and waits for the network to go idle.

Options:
  --headless             Run Chrome without a window
  --chrome PATH          Chrome/Chromium binary (default: autodetect)
  --header "K: V"        Extra HTTP header, may be repeated
  --screenshot FILE      Save a full-page screenshot after loading
  --open                 Open the URL in the system browser instead of Chrome
` + commonHelp

func runNavigate(ctx context.Context, args []string) error {
	var opts commonOptions
	var headless bool
	var chromePath string
	var headerList []string
	var screenshot string
	var openFlag bool
	args, err := opts.bind(flags.
		Bool("--headless", &headless).
		String("--chrome", &chromePath).
		StringSlice("--header", &headerList).
		String("--screenshot", &screenshot).
		Bool("--open", &openFlag)).
		Help("-h,--help", navigateHelp).
		Parse(args)
	if err != nil {
		return err
	}
	if err := checkNoExtraArgs(args); err != nil {
		return err
	}
	cfg, err := opts.resolve()
	if err != nil {
		return err
	}

	if openFlag {
		url, err := readiness.AutoNavigateToFrontend(ctx, systemBrowser{}, cfg)
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil
	}

	headers := make(map[string]string, len(headerList))
	for _, h := range headerList {
		key, val, err := parseHeader(h)
		if err != nil {
			return err
		}
		headers[key] = val
	}

	page, err := browser.NewPage(ctx, browser.Options{
		Headless:   headless,
		ChromePath: chromePath,
		Headers:    headers,
	})
	if err != nil {
		return err
	}
	defer page.Close()

	url, err := readiness.AutoNavigateToFrontend(ctx, page, cfg)
	if err != nil {
		return err
	}
	title, err := page.Title(ctx)
	if err != nil {
		logs.Warnf("could not read page title: %v", err)
	}
	fmt.Printf("Loaded %s (title %q)\n", url, title)

	if screenshot != "" {
		if err := page.Screenshot(ctx, screenshot); err != nil {
			return err
		}
		fmt.Printf("Screenshot saved to %s\n", screenshot)
	}
	return nil
}

func parseHeader(header string) (string, string, error) {
	parts := strings.SplitN(header, ":", 2)
	if len(parts) != 2 {
		return "", "", errors.Newf("header must be in 'Key: Value' format, got: %s", header)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// systemBrowser hands the URL to the desktop browser. It cannot observe page
// loading, so WaitForLoadState returns at once.
type systemBrowser struct{}

var openBrowser = web.OpenBrowser

func (systemBrowser) Goto(ctx context.Context, url string) error {
	return openBrowser(url)
}

func (systemBrowser) WaitForLoadState(ctx context.Context, state string) error {
	return nil
}
