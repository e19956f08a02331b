// Package client contains Cobra CLI commands that talk to a running server
// over its HTTP API.
package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// NewSubmitCommand constructs the `submit` command.
func NewSubmitCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a JSON document for processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, _ := cmd.Flags().GetString("data")
			if data == "" && len(args) > 0 {
				data = args[0]
			}
			form := url.Values{}
			form.Set("data", data)
			resp, err := http.PostForm(baseURL()+"/submit", form)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().String("data", "", "Document payload (JSON)")
	return cmd
}

// NewRecordsCommand constructs the `records` command.
func NewRecordsCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List persisted records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			next, _ := cmd.Flags().GetString("next")
			all, _ := cmd.Flags().GetBool("all")
			for {
				u := baseURL() + "/records"
				if next != "" {
					u += "?next=" + url.QueryEscape(next)
				}
				resp, err := http.Get(u)
				if err != nil {
					return err
				}
				var page struct {
					Results []json.RawMessage `json:"results"`
					Count   int               `json:"count"`
					Next    *string           `json:"next"`
				}
				err = json.NewDecoder(resp.Body).Decode(&page)
				resp.Body.Close()
				if err != nil {
					return err
				}
				if resp.StatusCode != http.StatusOK {
					return fmt.Errorf("server returned %s", resp.Status)
				}
				for _, r := range page.Results {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(r))
				}
				if !all || page.Next == nil {
					if page.Next != nil {
						_, _ = fmt.Fprintln(cmd.OutOrStdout(), "next:", *page.Next)
					}
					return nil
				}
				next = *page.Next
			}
		},
	}
	cmd.Flags().String("next", "", "Pagination token from a previous page")
	cmd.Flags().Bool("all", false, "Follow pagination to the end")
	return cmd
}

// NewTailCommand constructs the `tail` command.
func NewTailCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Stream live documents as they are accepted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			limit, _ := cmd.Flags().GetInt("limit")

			u := baseURL() + "/stream"
			if filter != "" {
				u += "?filter=" + url.QueryEscape(filter)
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned %s", resp.Status)
			}

			seen := 0
			scanner := bufio.NewScanner(resp.Body)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if !strings.HasPrefix(line, "data: ") {
					continue
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimPrefix(line, "data: "))
				seen++
				if limit > 0 && seen >= limit {
					return nil
				}
			}
			if err := scanner.Err(); err != nil && cmd.Context().Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("filter", "", "CEL filter (server-side)")
	cmd.Flags().Int("limit", 0, "Stop after N documents (0 = infinite)")
	return cmd
}

func printResponse(w io.Writer, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, strings.TrimSpace(string(body)))
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
