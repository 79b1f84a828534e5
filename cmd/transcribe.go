package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/streed/study-notes/internal/client"
	"github.com/streed/study-notes/internal/constants"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Turn a lecture recording into a note",
	Long: `Upload a lecture recording to the server. It is transcribed, formatted into
study notes in the chosen style or template, and stored with a generated quiz.

Examples:
  study-notes transcribe lecture.mp3
  study-notes transcribe week3.m4a --title "Week 3" --style summary --tags bio
  study-notes transcribe seminar.wav --template Cornell`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

var (
	transcribeTitle    string
	transcribeStyle    string
	transcribeTemplate string
	transcribeTags     []string
)

func init() {
	rootCmd.AddCommand(transcribeCmd)
	transcribeCmd.Flags().StringVarP(&transcribeTitle, "title", "t", "", "Note title (defaults to the file name)")
	transcribeCmd.Flags().StringVarP(&transcribeStyle, "style", "s", constants.DefaultNoteStyle,
		"Note style ("+strings.Join(constants.NoteStyles, ", ")+")")
	transcribeCmd.Flags().StringVar(&transcribeTemplate, "template", "", "Name of a saved template to format with")
	transcribeCmd.Flags().StringSliceVarP(&transcribeTags, "tags", "T", []string{}, "Tags for the note (comma-separated)")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	filename := filepath.Base(path)
	title := transcribeTitle
	if title == "" {
		title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Uploading %s, this can take a few minutes...\n", filename)
	note, err := newAPIClient().Transcribe(cmd.Context(), client.TranscribeRequest{
		Audio:        f,
		Filename:     filename,
		Title:        title,
		Style:        transcribeStyle,
		TemplateName: transcribeTemplate,
		Tags:         transcribeTags,
	})
	if err != nil {
		return fmt.Errorf("failed to transcribe: %w", err)
	}

	out := cmd.OutOrStdout()
	printCreated(out, note)
	fmt.Fprintf(out, "\n%s\n", note.Note)
	return nil
}
