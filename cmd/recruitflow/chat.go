package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foxzi/recruitflow/internal/app"
	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/conversation"
	"github.com/foxzi/recruitflow/internal/studio"
)

var (
	chatUser    string
	chatProject string
	chatSave    string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Author a campaign in the terminal",
	Long: `Hold the campaign conversation in the terminal. Once the draft is
confirmed the campaign is generated and printed. Type /quit to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "cli", "User ID owning the session")
	chatCmd.Flags().StringVar(&chatProject, "project", "", "Project ID for collateral lookup")
	chatCmd.Flags().StringVar(&chatSave, "save", "", "Save the generated campaign under this name")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	application, err := app.New(ctx, cfg, version, app.Options{LogOutput: os.Stderr})
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Close()

	return chat(ctx, application.Studio(), os.Stdin, os.Stdout, chatOptions{
		UserID:    chatUser,
		ProjectID: chatProject,
		SaveAs:    chatSave,
	})
}

type chatOptions struct {
	UserID    string
	ProjectID string
	SaveAs    string
}

// chat runs one conversation from in to out and generates the campaign
// once the recruiter confirms the draft
func chat(ctx context.Context, svc *studio.Service, in io.Reader, out io.Writer, opts chatOptions) error {
	sess, err := svc.StartSession(ctx, opts.UserID, opts.ProjectID)
	if err != nil {
		return err
	}
	if len(sess.History) > 0 {
		fmt.Fprintf(out, "assistant> %s\n", sess.History[len(sess.History)-1].Content)
	}

	scanner := bufio.NewScanner(in)
	for sess.State != conversation.StateGenerate {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}

		reply, err := svc.SendMessage(ctx, opts.UserID, sess.ID, line, nil)
		if err != nil {
			return err
		}
		sess = reply.Session

		fmt.Fprintf(out, "assistant> %s\n", reply.Turn.Message)
		for _, s := range reply.Turn.Suggestions {
			fmt.Fprintf(out, "  * %s\n", s)
		}
	}

	fmt.Fprintln(out, "Generating campaign...")
	sess, err = svc.Generate(ctx, opts.UserID, sess.ID)
	if err != nil {
		return err
	}
	printCampaign(out, sess.Campaign, sess.Steps, sess.GeneratedBy)

	if opts.SaveAs != "" {
		rec, err := svc.Save(ctx, opts.UserID, sess.ID, studio.SaveOptions{Name: opts.SaveAs})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved campaign %s (%s)\n", rec.Name, rec.ID)
	}
	return nil
}

func printCampaign(out io.Writer, data *campaign.Data, steps []campaign.EmailStep, source string) {
	fmt.Fprintf(out, "\n%s\n", data.Name)
	fmt.Fprintf(out, "  type: %s, tone: %s, length: %s, source: %s\n", data.Type, data.Tone, data.EmailLength, source)
	fmt.Fprintf(out, "  audience: %s\n\n", data.TargetAudience)

	for i, step := range steps {
		fmt.Fprintf(out, "Step %d (%s, %s)\n", i+1, step.Type, formatDelay(step))
		if step.Subject != "" {
			fmt.Fprintf(out, "Subject: %s\n", step.Subject)
		}
		fmt.Fprintf(out, "%s\n\n", step.Content)
	}
}

func formatDelay(step campaign.EmailStep) string {
	if step.DelayUnit == campaign.DelayImmediately || step.Delay == 0 {
		return "immediately"
	}
	if step.Delay == 1 {
		return "after 1 business day"
	}
	return fmt.Sprintf("after %d business days", step.Delay)
}
