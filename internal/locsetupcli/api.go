package locsetupcli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/phillip-england/locsetup/internal/fsapi"
	"github.com/spf13/cobra"
)

func (a *app) newAPICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Call the site backend",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(*cobra.Command, []string) error {
			return fmt.Errorf("%w: locsetup api <permissions|folders|pages> [...]", ErrUsage)
		},
	}
	cmd.AddCommand(a.newPermissionsCommand())
	cmd.AddCommand(a.newFoldersCommand())
	cmd.AddCommand(a.newPagesCommand())
	return cmd
}

func (a *app) newPermissionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "permissions [module]",
		Short: "Check module permissions, all of them in order when no module is given",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := a.load(cmd)
			if err != nil {
				return err
			}
			client := a.client(cfg, log)

			if len(args) == 1 {
				m, err := fsapi.ParseModule(args[0])
				if err != nil {
					return fmt.Errorf("%w: %v", ErrUsage, err)
				}
				resp, err := client.Permissions(cmd.Context(), m)
				if err != nil {
					return err
				}
				return printResponse(a.stdout, resp)
			}

			var failed []error
			for _, r := range client.CheckAllPermissions(cmd.Context()) {
				if r.Err != nil {
					fmt.Fprintf(a.stdout, "%-13s error: %v\n", r.Module, r.Err)
					failed = append(failed, fmt.Errorf("%s: %w", r.Module, r.Err))
					continue
				}
				fmt.Fprintf(a.stdout, "%-13s %s\n", r.Module, summarize(r.Response))
			}
			return errors.Join(failed...)
		},
	}
}

func (a *app) newFoldersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List or delete post folders",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(*cobra.Command, []string) error {
			return fmt.Errorf("%w: locsetup api folders <list|delete> [...]", ErrUsage)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List post folders",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := a.load(cmd)
			if err != nil {
				return err
			}
			list, err := a.client(cfg, log).ListFolders(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range list.Data {
				fmt.Fprintf(a.stdout, "%d\t%s\n", f.ID, f.Name)
			}
			for _, e := range list.Errors {
				fmt.Fprintf(a.stdout, "error\t%s\n", e.Message)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a post folder",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, log, err := a.load(cmd)
			if err != nil {
				return err
			}
			resp, err := a.client(cfg, log).DeleteFolder(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printResponse(a.stdout, resp)
		},
	})
	return cmd
}

func (a *app) newPagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Create, publish or inspect page drafts",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(*cobra.Command, []string) error {
			return fmt.Errorf("%w: locsetup api pages <create|publish|draft> [...]", ErrUsage)
		},
	}

	var pageSlug string
	create := &cobra.Command{
		Use:   "create <parent-id> <name>",
		Short: "Create a page draft",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, log, err := a.load(cmd)
			if err != nil {
				return err
			}
			resp, err := a.client(cfg, log).CreatePage(cmd.Context(), parentID, args[1], pageSlug)
			if err != nil {
				return err
			}
			return printResponse(a.stdout, resp)
		},
	}
	create.Flags().StringVar(&pageSlug, "slug", "", "page slug, derived from the name when empty")
	cmd.AddCommand(create)

	var options []string
	publish := &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish a page draft",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			values, err := parseOptions(options)
			if err != nil {
				return err
			}
			cfg, log, err := a.load(cmd)
			if err != nil {
				return err
			}
			resp, err := a.client(cfg, log).PublishPage(cmd.Context(), id, values)
			if err != nil {
				return err
			}
			return printResponse(a.stdout, resp)
		},
	}
	publish.Flags().StringArrayVar(&options, "option", nil, "publish option as key=value, repeatable")
	cmd.AddCommand(publish)

	var elements bool
	draft := &cobra.Command{
		Use:   "draft <id>",
		Short: "Print a page draft, or the element ids found in it",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, log, err := a.load(cmd)
			if err != nil {
				return err
			}
			client := a.client(cfg, log)
			if !elements {
				body, err := client.GetPageDraftHTML(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, body)
				return nil
			}
			found, err := client.PageElements(cmd.Context(), id)
			if err != nil {
				return err
			}
			for _, el := range found {
				fmt.Fprintf(a.stdout, "%s\t%s\n", el.ID, el.SettingsID)
			}
			return nil
		},
	}
	draft.Flags().BoolVar(&elements, "elements", false, "list element and settings ids instead of the HTML")
	cmd.AddCommand(draft)
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", ErrUsage, raw)
	}
	return id, nil
}

func parseOptions(raw []string) (url.Values, error) {
	values := url.Values{}
	for _, opt := range raw {
		key, value, ok := strings.Cut(opt, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: option %q is not key=value", ErrUsage, opt)
		}
		values.Add(strings.TrimSpace(key), value)
	}
	return values, nil
}

func printResponse(w io.Writer, resp *fsapi.Response) error {
	switch resp.Kind {
	case fsapi.KindJSON:
		var buf bytes.Buffer
		if err := json.Indent(&buf, resp.JSON, "", "  "); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err := w.Write(buf.Bytes())
		return err
	case fsapi.KindHTML:
		_, err := fmt.Fprintln(w, resp.Text)
		return err
	default:
		_, err := fmt.Fprintf(w, "ok (%d)\n", resp.StatusCode)
		return err
	}
}

func summarize(resp *fsapi.Response) string {
	switch resp.Kind {
	case fsapi.KindJSON:
		return string(resp.JSON)
	case fsapi.KindHTML:
		return fmt.Sprintf("html (%d bytes)", len(resp.Text))
	default:
		return fmt.Sprintf("ok (%d)", resp.StatusCode)
	}
}
