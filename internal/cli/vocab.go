package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kanjiarena/kanji-arena/internal/vocabulary"
)

func newVocabCommand(connect connectFunc) *cobra.Command {
	vocab := &cobra.Command{
		Use:   "vocab",
		Short: "Import and inspect the vocabulary",
	}
	vocab.AddCommand(newImportCommand(connect), newStatsCommand(connect), newFlushCommand(connect))
	return vocab
}

func newImportCommand(connect connectFunc) *cobra.Command {
	var (
		file   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert kanjis from a YAML seed file",
		Long: `Reads a YAML document of the form

  kanjis:
    - kanji: 水
      grade: 1
      meanings: {en: [water], fr: [eau]}

upserts every entry and drops the cached grade pools.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open seed: %w", err)
			}
			defer f.Close()

			entries, err := vocabulary.ParseSeed(f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "%d entries parsed, nothing written (dry run)\n", len(entries))
				return nil
			}

			b, err := connect(cmd.Context(), cliLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer b.close()

			if err := b.store.Upsert(cmd.Context(), entries); err != nil {
				return err
			}
			if err := b.cache.Invalidate(cmd.Context(), b.allGrades()...); err != nil {
				return fmt.Errorf("flush pool cache: %w", err)
			}
			fmt.Fprintf(out, "%d entries imported\n", len(entries))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and validate only")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newStatsCommand(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count kanjis per grade",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := connect(cmd.Context(), cliLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer b.close()

			counts, err := b.store.CountByGrade(cmd.Context())
			if err != nil {
				return err
			}
			grades := make([]int, 0, len(counts))
			for g := range counts {
				grades = append(grades, g)
			}
			sort.Ints(grades)

			out := cmd.OutOrStdout()
			total := 0
			for _, g := range grades {
				fmt.Fprintf(out, "grade %d  %6d\n", g, counts[g])
				total += counts[g]
			}
			fmt.Fprintf(out, "total    %6d\n", total)
			return nil
		},
	}
}

func newFlushCommand(connect connectFunc) *cobra.Command {
	var grade int
	cmd := &cobra.Command{
		Use:   "flush-cache",
		Short: "Drop cached grade pools so they are rebuilt from Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := connect(cmd.Context(), cliLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer b.close()

			grades := b.allGrades()
			if grade != 0 {
				if err := b.grades.Check(grade); err != nil {
					return err
				}
				grades = []int{grade}
			}
			if err := b.cache.Invalidate(cmd.Context(), grades...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "flushed %d pool(s)\n", len(grades))
			return nil
		},
	}
	cmd.Flags().IntVar(&grade, "grade", 0, "Only flush the pool of this grade")
	return cmd
}

func (b *backend) allGrades() []int {
	grades := make([]int, 0, b.grades.Max-b.grades.Min+1)
	for g := b.grades.Min; g <= b.grades.Max; g++ {
		grades = append(grades, g)
	}
	return grades
}
