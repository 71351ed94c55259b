package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"medig/internal/derive"
	"medig/internal/document"
	"medig/internal/domain"
	"medig/internal/logger"
	"medig/internal/prompt"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "medig",
		Short:        "Offline tools for MediG medical records",
		SilenceUsage: true,
	}
	root.AddCommand(exportCmd())
	root.AddCommand(promptCmd())
	root.AddCommand(bmiCmd())
	return root
}

func loadRecord(variant, path string) (domain.Record, domain.Variant, error) {
	v, err := domain.ParseVariant(variant)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read record: %w", err)
	}
	rec, err := domain.DecodeRecord(v, data)
	if err != nil {
		return nil, "", err
	}
	return rec, v, nil
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a record JSON file to .docx",
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, _ := cmd.Flags().GetString("variant")
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			width, _ := cmd.Flags().GetInt("image-width")

			rec, v, err := loadRecord(variant, in)
			if err != nil {
				return err
			}
			log, err := logger.NewLogger("warn", "console", "medig")
			if err != nil {
				log = zap.NewNop()
			}
			defer log.Sync()

			a := document.NewAssembler(time.Now)
			file, err := document.NewExporter(a, document.NewRenderer(log, width)).Export(rec, v)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			dst := filepath.Join(out, file.Name)
			if err := os.WriteFile(dst, file.Content, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", dst, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dst)
			return nil
		},
	}
	cmd.Flags().String("variant", string(domain.VariantPreOp), "pre-op | post-op | internal-med")
	cmd.Flags().String("in", "record.json", "Record JSON file")
	cmd.Flags().String("out", ".", "Output directory")
	cmd.Flags().Int("image-width", document.DefaultImageWidth, "Display width of embedded images (px)")
	return cmd
}

func promptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the AI prompt for a task (SUMMARY, PROBLEM, ..., CHAT)",
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, _ := cmd.Flags().GetString("variant")
			task, _ := cmd.Flags().GetString("task")
			in, _ := cmd.Flags().GetString("in")

			rec, v, err := loadRecord(variant, in)
			if err != nil {
				return err
			}
			var p string
			if task == "CHAT" {
				p, err = prompt.BuildChatPrompt(rec, v, nil, time.Now())
			} else {
				p, err = prompt.BuildPrompt(rec, v, prompt.Task(task), time.Now())
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().String("variant", string(domain.VariantPreOp), "pre-op | post-op | internal-med")
	cmd.Flags().String("task", string(prompt.TaskSummary), "Task name")
	cmd.Flags().String("in", "record.json", "Record JSON file")
	return cmd
}

func bmiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bmi",
		Short: "Compute BMI and IDI & WPRO classification",
		RunE: func(cmd *cobra.Command, args []string) error {
			weight, _ := cmd.Flags().GetString("weight")
			height, _ := cmd.Flags().GetString("height")
			bmi, class := derive.BMI(weight, height)
			if bmi == "" {
				return fmt.Errorf("weight and height must be positive numbers")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "BMI: %s\nPhân loại: %s\n", bmi, class)
			return nil
		},
	}
	cmd.Flags().String("weight", "", "Weight (kg)")
	cmd.Flags().String("height", "", "Height (cm)")
	return cmd
}
