package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/posters/iox"
	"github.com/pithecene-io/posters/types"
)

// EnvALBDNSName names the environment variable holding the load
// balancer DNS name.
const EnvALBDNSName = "ALB_DNS_NAME"

// defaultCallTimeout bounds a call; generation routinely takes tens of
// seconds.
const defaultCallTimeout = 60 * time.Second

const callUsage = `Usage:
  posters call <dns-name> <prompt...>
  or: export ALB_DNS_NAME=<dns-name> && posters call <prompt...>

Example:
  posters call my-alb-1234567890.us-east-1.elb.amazonaws.com 'A beautiful sunset over mountains'`

// Argument errors.
var (
	errNoDNSName = errors.New("load balancer DNS name not provided")
	errNoPrompt  = errors.New("prompt not provided")
)

// CallCommand returns the call command.
func CallCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "POST a prompt to the deployed load balancer",
		ArgsUsage: "[dns-name] <prompt...>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dns",
				Usage: "Load balancer DNS name or URL (default: first argument, then $" + EnvALBDNSName + ")",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: defaultCallTimeout,
			},
		},
		Action: callAction,
	}
}

func callAction(c *cli.Context) error {
	dns, prompt, err := resolveCallTarget(c.String("dns"), os.Getenv(EnvALBDNSName), c.Args().Slice())
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v.\n\n%s", err, callUsage), 1)
	}

	client := &http.Client{Timeout: c.Duration("timeout")}
	if _, err := Call(c.Context, client, TargetURL(dns), prompt, c.App.Writer); err != nil {
		return cli.Exit(fmt.Sprintf("Error calling load balancer: %v", err), 1)
	}
	return nil
}

// resolveCallTarget picks the DNS name and prompt from the --dns flag,
// the environment and positional arguments. An explicit flag wins; with
// two or more arguments the first is the DNS name; a lone argument is
// the prompt only when the environment supplies the DNS name.
func resolveCallTarget(flagDNS, envDNS string, args []string) (dns, prompt string, err error) {
	switch {
	case flagDNS != "":
		dns, prompt = flagDNS, joinArgs(args)
	case len(args) >= 2:
		dns, prompt = args[0], joinArgs(args[1:])
	case len(args) == 1 && envDNS != "":
		dns, prompt = envDNS, args[0]
	case len(args) == 1:
		dns = args[0]
	default:
		dns = envDNS
	}

	if dns == "" {
		return "", "", errNoDNSName
	}
	if strings.TrimSpace(prompt) == "" {
		return "", "", errNoPrompt
	}
	return dns, prompt, nil
}

// TargetURL adds the http scheme to a bare DNS name. The load balancer
// listener is plain HTTP on port 80.
func TargetURL(dns string) string {
	if strings.HasPrefix(dns, "http://") || strings.HasPrefix(dns, "https://") {
		return dns
	}
	return "http://" + dns
}

// Call POSTs {"prompt": prompt} to url and prints the exchange to out.
// It returns the HTTP status code. Non-2xx responses are printed, not
// returned as errors; only transport failures are.
func Call(ctx context.Context, client *http.Client, url, prompt string, out io.Writer) (int, error) {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "posters-cli/"+types.Version)

	fmt.Fprintf(out, "Calling load balancer: %s\n", url)
	fmt.Fprintf(out, "Prompt: %s\n\n", prompt)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer iox.DiscardClose(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	printResponse(out, resp, body)
	return resp.StatusCode, nil
}

func printResponse(out io.Writer, resp *http.Response, body []byte) {
	fmt.Fprintf(out, "Response Status Code: %d\n", resp.StatusCode)
	fmt.Fprintln(out, "Response Headers:")
	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s: %s\n", name, strings.Join(resp.Header[name], ", "))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		fmt.Fprintln(out, "\nResponse Body:")
		fmt.Fprintf(out, "Presigned URL: %s\n", body)
		return
	}

	fmt.Fprintln(out, "\nError Response Body:")
	fmt.Fprintln(out, string(body))

	var parsed any
	if json.Unmarshal(body, &parsed) == nil {
		if pretty, err := json.MarshalIndent(parsed, "", "  "); err == nil {
			fmt.Fprintln(out, "\nError (parsed JSON):")
			fmt.Fprintln(out, string(pretty))
		}
	}
	fmt.Fprintln(out, "\nTIP: Check the function's CloudWatch Logs for detailed error messages")
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
