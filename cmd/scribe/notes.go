package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"mind-scribe/internal/services/notes"

	"github.com/spf13/cobra"
)

var (
	listJSON     bool
	noteCategory string
	noteTitle    string
	noteTexts    []string
	noteItems    []string
	noteLon      float64
	noteLat      float64
	nearbyRadius int
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "List, create, edit and delete notes",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every note you own or collaborate on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		found, err := api.ListNotes(cmd.Context(), sess.Token, noteCategory)
		if err != nil {
			return err
		}
		return printNotes(cmd.OutOrStdout(), found, listJSON)
	},
}

var notesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		req, err := noteRequestFromFlags(cmd)
		if err != nil {
			return err
		}

		note, err := api.CreateNote(cmd.Context(), sess.Token, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", note.ID.Hex())
		return nil
	},
}

var notesEditCmd = &cobra.Command{
	Use:   "edit <note-id>",
	Short: "Replace a note's title, content, location and category",
	Long: `Edit replaces every editable field of the note. Fields you leave out
are cleared, so pass --lon/--lat again to keep a location.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		req, err := noteRequestFromFlags(cmd)
		if err != nil {
			return err
		}

		note, err := api.UpdateNote(cmd.Context(), sess.Token, args[0], req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", note.ID.Hex())
		return nil
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <note-id>",
	Short: "Delete a note you own",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		if err := api.DeleteNote(cmd.Context(), sess.Token, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

var notesNearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "List your geotagged notes near a point",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		radius := nearbyRadius
		if radius == 0 {
			radius = clientCfg.RadiusM
		}

		found, err := api.FindNearby(cmd.Context(), sess.Token, noteLon, noteLat, radius)
		if err != nil {
			return err
		}
		return printNotes(cmd.OutOrStdout(), found, listJSON)
	},
}

var notesOwnerCmd = &cobra.Command{
	Use:   "owner <note-id>",
	Short: "Show who owns a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		owner, err := api.Owner(cmd.Context(), sess.Token, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", owner.Fullname, owner.Email)
		return nil
	},
}

var errLocationPair = errors.New("--lon and --lat must be given together")

// noteRequestFromFlags builds a request from the shared create/edit flags.
// Each --text becomes a text block and each --item a checkbox block.
func noteRequestFromFlags(cmd *cobra.Command) (notes.NoteRequest, error) {
	req := notes.NoteRequest{
		Title:    noteTitle,
		Category: noteCategory,
	}
	for _, t := range noteTexts {
		req.Content = append(req.Content, notes.Block{Type: notes.BlockText, Text: t})
	}
	for _, it := range noteItems {
		checked := strings.HasPrefix(it, "x:")
		req.Content = append(req.Content, notes.Block{
			Type:    notes.BlockCheckbox,
			Text:    strings.TrimPrefix(it, "x:"),
			Checked: checked,
		})
	}

	lonSet, latSet := cmd.Flags().Changed("lon"), cmd.Flags().Changed("lat")
	switch {
	case lonSet && latSet:
		req.Location = notes.NewPoint(noteLon, noteLat)
	case lonSet || latSet:
		return notes.NoteRequest{}, errLocationPair
	}
	return req, nil
}

func printNotes(w io.Writer, found []*notes.Note, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	}

	if len(found) == 0 {
		fmt.Fprintln(w, "No notes")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, n := range found {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.ID.Hex(), n.Title, n.Category, noteFlags(n))
	}
	return tw.Flush()
}

func noteFlags(n *notes.Note) string {
	var flags []string
	if n.Shared {
		flags = append(flags, fmt.Sprintf("shared(%d)", len(n.Collaborators)))
	}
	if n.Location != nil && len(n.Location.Coordinates) == 2 {
		flags = append(flags, fmt.Sprintf("@%.5f,%.5f", n.Location.Longitude(), n.Location.Latitude()))
	}
	return strings.Join(flags, " ")
}

func init() {
	rootCmd.AddCommand(notesCmd)
	notesCmd.AddCommand(notesListCmd, notesCreateCmd, notesEditCmd, notesDeleteCmd, notesNearbyCmd, notesOwnerCmd)

	notesListCmd.Flags().StringVar(&noteCategory, "category", "", "Only notes in this category")
	notesListCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")

	for _, c := range []*cobra.Command{notesCreateCmd, notesEditCmd} {
		c.Flags().StringVar(&noteTitle, "title", "", "Note title")
		c.Flags().StringArrayVar(&noteTexts, "text", nil, "Text block (repeatable)")
		c.Flags().StringArrayVar(&noteItems, "item", nil, "Checkbox block, prefix with x: when done (repeatable)")
		c.Flags().StringVar(&noteCategory, "category", "", "Category")
		c.Flags().Float64Var(&noteLon, "lon", 0, "Longitude")
		c.Flags().Float64Var(&noteLat, "lat", 0, "Latitude")
		_ = c.MarkFlagRequired("title")
	}

	notesNearbyCmd.Flags().Float64Var(&noteLon, "lon", 0, "Longitude")
	notesNearbyCmd.Flags().Float64Var(&noteLat, "lat", 0, "Latitude")
	notesNearbyCmd.Flags().IntVar(&nearbyRadius, "radius", 0, "Radius in metres (default SCRIBE_RADIUS_M)")
	notesNearbyCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	_ = notesNearbyCmd.MarkFlagRequired("lon")
	_ = notesNearbyCmd.MarkFlagRequired("lat")
}

var shareCmd = &cobra.Command{
	Use:   "share <note-id> <email>",
	Short: "Add a collaborator to a note you own",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		note, err := api.AddCollaborator(cmd.Context(), sess.Token, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Shared %s with %s (collaborators: %s)\n", note.ID.Hex(), args[1], strings.Join(note.Collaborators, ", "))
		return nil
	},
}

var unshareCmd = &cobra.Command{
	Use:   "unshare <note-id> <email>",
	Short: "Remove a collaborator from a note you own",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		note, err := api.RemoveCollaborator(cmd.Context(), sess.Token, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s (collaborators: %s)\n", args[1], note.ID.Hex(), strings.Join(note.Collaborators, ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shareCmd, unshareCmd)
}
