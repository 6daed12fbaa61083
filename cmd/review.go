package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/jdindex"
	"github.com/spigell/resume-reviewer/internal/report"
	"github.com/spigell/resume-reviewer/internal/resume"
	"github.com/spigell/resume-reviewer/internal/review"
)

const inferRoleItem = "(infer from resume)"

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Score a resume and ask the LLM for feedback",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := setup()
		ctx, cancel := signalContext()
		defer cancel()

		resumePath, _ := cmd.Flags().GetString("resume")
		role, _ := cmd.Flags().GetString("role")
		jdPath, _ := cmd.Flags().GetString("jd")
		out, _ := cmd.Flags().GetString("out")
		noLLM, _ := cmd.Flags().GetBool("no-llm")

		doc, err := resume.ReadFile(resumePath)
		if err != nil {
			logger.Fatal("could not extract text from the resume", zap.String("resume", resumePath), zap.Error(err))
		}
		logger.Info("resume loaded", zap.Int("pages", doc.Pages), zap.Int("length", len(doc.Text)))

		var jd string
		if jdPath != "" {
			data, err := os.ReadFile(jdPath)
			if err != nil {
				logger.Fatal("reading the job description", zap.Error(err))
			}
			jd = string(data)
		}

		idx := loadIndex(ctx, config, logger)
		if role == "" && interactive() {
			role = selectRole(idx, logger)
		}

		if noLLM {
			config.AI = nil
		}
		reviewer, err := newReviewer(ctx, config.AI, logger)
		if err != nil {
			logger.Fatal("creating the llm reviewer", zap.Error(err), zap.String("hint", "pass --no-llm to score without it"))
		}

		res, err := review.NewService(idx, reviewer, logger).Review(ctx, review.Request{
			ResumeText:     doc.Text,
			Role:           role,
			JobDescription: jd,
		})
		if err != nil {
			if errors.Is(err, review.ErrUnknownRole) {
				logger.Fatal("reviewing the resume", zap.Error(err), zap.String("hint", "see `resume-reviewer roles`"))
			}
			logger.Fatal("reviewing the resume", zap.Error(err))
		}

		pretty, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(pretty))

		if out == "" {
			return
		}
		f, err := os.Create(out)
		if err != nil {
			logger.Fatal("creating the report file", zap.Error(err))
		}
		defer f.Close()
		if err := report.Render(f, report.Input{
			Role:        res.Role,
			ATS:         res.ATS,
			FeedbackRaw: res.LLMFeedbackRaw,
			Feedback:    res.Feedback,
		}, config.Report); err != nil {
			logger.Fatal("writing the report", zap.Error(err))
		}
		logger.Info("report written", zap.String("filename", out))
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().String("resume", "", "resume file (.pdf or .txt)")
	reviewCmd.Flags().String("role", "", "target role; asked interactively or inferred when empty")
	reviewCmd.Flags().String("jd", "", "file with the job description")
	reviewCmd.Flags().StringP("out", "o", "", "write a PDF report to this file")
	reviewCmd.Flags().Bool("no-llm", false, "only compute the ATS score")
	reviewCmd.MarkFlagRequired("resume")
}

func interactive() bool {
	info, err := os.Stdin.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// selectRole asks for the target role. An empty result lets the classifier pick.
func selectRole(idx *jdindex.Index, logger *zap.Logger) string {
	m, err := idx.Model()
	if err != nil {
		return ""
	}

	items := append([]string{inferRoleItem}, m.Classes()...)
	rolePrompt := promptui.Select{
		Label: "Select target position",
		Items: items,
		Size:  15,
		Searcher: func(input string, index int) bool {
			return index == 0 || strings.Contains(strings.ToLower(items[index]), strings.ToLower(input))
		},
	}

	_, selected, err := rolePrompt.Run()
	if err != nil || selected == inferRoleItem {
		if err != nil {
			logger.Debug("role prompt aborted, inferring role", zap.Error(err))
		}
		return ""
	}
	return selected
}
