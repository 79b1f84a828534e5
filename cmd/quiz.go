package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/streed/study-notes/internal/constants"
	"github.com/streed/study-notes/internal/models"
	"github.com/streed/study-notes/internal/services"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Take the quiz generated for a note",
}

var quizShowCmd = &cobra.Command{
	Use:   "show <note-id>",
	Short: "Show the questions of a note's quiz",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuizShow,
}

var quizGradeCmd = &cobra.Command{
	Use:   "grade <note-id>",
	Short: "Grade answers to a note's quiz",
	Long: `Grade one option index per question, in order. Options are numbered from 0;
use -1 to skip a question.

Example:
  study-notes quiz grade 12 --answers 0,2,-1,1,3`,
	Args: cobra.ExactArgs(1),
	RunE: runQuizGrade,
}

var quizAnswers string

func init() {
	rootCmd.AddCommand(quizCmd)
	quizCmd.AddCommand(quizShowCmd)
	quizCmd.AddCommand(quizGradeCmd)
	quizGradeCmd.Flags().StringVarP(&quizAnswers, "answers", "a", "", "Comma-separated option indexes (required)")
	_ = quizGradeCmd.MarkFlagRequired("answers")
}

func runQuizShow(cmd *cobra.Command, args []string) error {
	id, err := parseNoteID(args[0])
	if err != nil {
		return err
	}

	quiz, err := newAPIClient().GetQuiz(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	printQuiz(cmd.OutOrStdout(), quiz)
	return nil
}

func printQuiz(out io.Writer, quiz *models.Quiz) {
	if quiz.Title != "" {
		fmt.Fprintf(out, "%s\n\n", quiz.Title)
	}
	for i, q := range quiz.Questions {
		fmt.Fprintf(out, "%d. %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			fmt.Fprintf(out, "   %d) %s\n", j, opt)
		}
		fmt.Fprintln(out)
	}
}

func runQuizGrade(cmd *cobra.Command, args []string) error {
	id, err := parseNoteID(args[0])
	if err != nil {
		return err
	}
	answers, err := services.ParseAnswers(quizAnswers)
	if err != nil {
		return err
	}

	result, err := newAPIClient().GradeQuiz(cmd.Context(), id, answers)
	if err != nil {
		return fmt.Errorf("failed to grade quiz: %w", err)
	}

	printResult(cmd.OutOrStdout(), result)
	return nil
}

func printResult(out io.Writer, result *services.QuizResult) {
	fmt.Fprintf(out, "Score: %d/%d (%.1f%%)\n\n", result.Correct, result.Total, result.Score)
	for i, r := range result.Results {
		mark := "wrong"
		switch {
		case r.Correct:
			mark = "correct"
		case r.Selected == constants.Unanswered:
			mark = "skipped"
		}
		fmt.Fprintf(out, "%d. [%s] %s\n", i+1, mark, r.Question)
		if !r.Correct {
			fmt.Fprintf(out, "   Answer: %d) %s\n", r.CorrectAnswer, r.CorrectOption)
		}
		if r.Explanation != "" {
			fmt.Fprintf(out, "   %s\n", r.Explanation)
		}
	}
}
