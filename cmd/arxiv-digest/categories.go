// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-digest/internal/digest"
	"github.com/pdiddy/arxiv-digest/internal/papers"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories [topic]",
	Short: "List subject areas or the categories of one",
	Long: `Without an argument, categories lists every subject area with its archive
code and the number of categories the category filter accepts for it. With a
topic name it lists those categories.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return writeTopics(os.Stdout)
		}
		return writeCategories(os.Stdout, args[0])
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

func writeTopics(w io.Writer) error {
	var rows [][]string
	for _, name := range papers.TopicNames() {
		t, _ := papers.LookupTopic(name)
		note := ""
		if t.Umbrella {
			note = "choose a sub-archive"
		}
		rows = append(rows, []string{t.Name, t.Code, strconv.Itoa(len(t.Categories)), note})
	}
	return digest.WriteGrid(w, []string{"Topic", "Code", "Categories", "Note"}, rows, 3)
}

func writeCategories(w io.Writer, name string) error {
	t, ok := papers.LookupTopic(name)
	if !ok {
		return &types.InvalidTopicError{Topic: name, Reason: "unknown subject area"}
	}
	if len(t.Categories) == 0 {
		_, err := fmt.Fprintf(w, "%s (%s) accepts no categories; disable the category filter for it\n", t.Name, t.Code)
		return err
	}
	rows := make([][]string, len(t.Categories))
	for i, c := range t.Categories {
		rows[i] = []string{c}
	}
	return digest.WriteGrid(w, []string{t.Name + " (" + t.Code + ")"}, rows)
}
