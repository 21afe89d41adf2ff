package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"unionhall/models"
	"unionhall/nav"
)

var (
	navTab   string
	navPost  string
	navWrite bool
)

var navCmd = &cobra.Command{
	Use:   "nav",
	Short: "Build and read site deep links",
}

var navEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Print the link for a tab, post or compose view",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := nav.State{Tab: models.Tab(navTab), Writing: navWrite}
		if navPost != "" {
			s.PostID = nav.Post(navPost)
		}
		fmt.Fprintln(cmd.OutOrStdout(), nav.Link(s))
		return nil
	},
}

var navDecodeCmd = &cobra.Command{
	Use:   "decode <url-or-fragment>",
	Short: "Print the view a link opens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fragment := args[0]
		if strings.Contains(fragment, "#") {
			fragment = nav.FragmentOf(fragment)
		}
		s := nav.Decode(fragment)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "tab:     %s\n", s.Tab)
		if s.PostID != nil {
			fmt.Fprintf(out, "post:    %s\n", *s.PostID)
		}
		fmt.Fprintf(out, "writing: %t\n", s.Writing)
		return nil
	},
}

func init() {
	navEncodeCmd.Flags().StringVar(&navTab, "tab", string(models.TabHome), "tab to open")
	navEncodeCmd.Flags().StringVar(&navPost, "post", "", "post id to open")
	navEncodeCmd.Flags().BoolVar(&navWrite, "write", false, "open the compose view")
	navCmd.AddCommand(navEncodeCmd)
	navCmd.AddCommand(navDecodeCmd)
	rootCmd.AddCommand(navCmd)
}
