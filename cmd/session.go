/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/valpere/dichai/internal/persistence"
	"github.com/valpere/dichai/internal/provider"
	"github.com/valpere/dichai/internal/session"
)

var (
	sessionPath string
	forceInit   bool

	selfValue string

	lineCharacter  string
	lineExpression string
	lineText       string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Create and edit session files",
	Long: `Create, inspect and edit a session file: characters, relationships, pronoun
rules, expressions, the text to translate and its free-text settings.

Every subcommand reads the file given by --file, applies one change and writes it back.`,
}

var sessionInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a session file with default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(sessionPath); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", sessionPath)
		}
		catalog := provider.NewCatalog()
		if err := saveSession(sessionPath, session.New(), catalog, configSettings(catalog)); err != nil {
			return err
		}
		fmt.Printf("Created session %s\n", sessionPath)
		return nil
	},
}

// Views number items from 1; ids are not persisted, so the CLI addresses
// relationships, pronoun rules and lines by position.
type lineView struct {
	N          int    `yaml:"n"`
	Text       string `yaml:"text"`
	Character  string `yaml:"character,omitempty"`
	Expression string `yaml:"expression,omitempty"`
}

type pronounView struct {
	N         int    `yaml:"n"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Value     string `yaml:"value"`
	SelfValue string `yaml:"self_value,omitempty"`
}

type sessionView struct {
	Provider      string            `yaml:"provider,omitempty"`
	Model         string            `yaml:"model,omitempty"`
	APIKey        string            `yaml:"api_key,omitempty"`
	Characters    []string          `yaml:"characters"`
	Relationships []string          `yaml:"relationships,omitempty"`
	Pronouns      []pronounView     `yaml:"pronouns,omitempty"`
	Expressions   []string          `yaml:"expressions"`
	Context       string            `yaml:"context,omitempty"`
	Genre         string            `yaml:"genre,omitempty"`
	Style         string            `yaml:"style,omitempty"`
	Requirements  string            `yaml:"requirements,omitempty"`
	CustomModels  []string          `yaml:"custom_models,omitempty"`
	Lines         []lineView        `yaml:"lines"`
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a session file as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := provider.NewCatalog()
		s, settings, err := loadSession(sessionPath, catalog)
		if err != nil {
			return err
		}
		snap := s.Snapshot()

		view := sessionView{
			Provider:     settings.Selection.Provider,
			Model:        settings.Selection.Model,
			APIKey:       provider.MaskKey(settings.APIKey),
			Characters:   snap.Characters,
			Expressions:  snap.Expressions,
			Context:      snap.Context,
			Genre:        snap.Genre,
			Style:        snap.Style,
			Requirements: snap.Requirements,
		}
		for _, r := range snap.Relationships {
			view.Relationships = append(view.Relationships, r.Description)
		}
		for i, p := range snap.Pronouns {
			view.Pronouns = append(view.Pronouns, pronounView{N: i + 1, From: p.From, To: p.To, Value: p.Value, SelfValue: p.SelfValue})
		}
		for _, m := range catalog.CustomModels() {
			view.CustomModels = append(view.CustomModels, m.ID)
		}
		for i, l := range snap.Lines {
			view.Lines = append(view.Lines, lineView{N: i + 1, Text: l.Text, Character: l.Character, Expression: l.Expression})
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		return enc.Close()
	},
}

var sessionSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set context, genre, style or requirements",
	RunE: func(cmd *cobra.Command, args []string) error {
		return editSession(sessionPath, func(s *session.Session, _ *provider.Catalog, _ *persistence.Settings) error {
			setters := map[string]func(string){
				"context":      s.SetContext,
				"genre":        s.SetGenre,
				"style":        s.SetStyle,
				"requirements": s.SetRequirements,
			}
			changed := 0
			for name, set := range setters {
				if cmd.Flags().Changed(name) {
					v, _ := cmd.Flags().GetString(name)
					set(v)
					changed++
				}
			}
			if changed == 0 {
				return fmt.Errorf("nothing to set: use --context, --genre, --style or --requirements")
			}
			return nil
		})
	},
}

// editCmd builds a subcommand that applies fn to the session file.
func editCmd(use, short string, args cobra.PositionalArgs, fn func(s *session.Session, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editSession(sessionPath, func(s *session.Session, _ *provider.Catalog, _ *persistence.Settings) error {
				return fn(s, args)
			})
		},
	}
}

var characterCmd = &cobra.Command{Use: "character", Short: "Manage characters"}

var relationshipCmd = &cobra.Command{Use: "relationship", Short: "Manage relationship descriptions"}

var pronounCmd = &cobra.Command{Use: "pronoun", Short: "Manage pronoun rules"}

var expressionCmd = &cobra.Command{Use: "expression", Short: "Manage expression tags"}

var lineCmd = &cobra.Command{Use: "line", Short: "Manage the text lines to translate"}

var pronounTargetsCmd = &cobra.Command{
	Use:   "targets <from>",
	Short: "List the characters a new rule from <from> may address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := loadSession(sessionPath, provider.NewCatalog())
		if err != nil {
			return err
		}
		if !s.HasCharacter(args[0]) {
			return fmt.Errorf("%w: %s", session.ErrUnknownCharacter, args[0])
		}
		for _, t := range s.AvailableTargets(args[0], "") {
			fmt.Println(t)
		}
		return nil
	},
}

var lineImportCmd = &cobra.Command{
	Use:   "import <text-file>",
	Short: "Replace all lines with the non-blank lines of a text file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		return editSession(sessionPath, func(s *session.Session, _ *provider.Catalog, _ *persistence.Settings) error {
			n := s.ImportText(string(content))
			fmt.Printf("Imported %d lines\n", n)
			return nil
		})
	},
}

var lineSetCmd = &cobra.Command{
	Use:   "set <n>",
	Short: "Change a line's text, character or expression",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editSession(sessionPath, func(s *session.Session, _ *provider.Catalog, _ *persistence.Settings) error {
			id, err := lineAt(s, args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("text") {
				if err := s.EditTextLineText(id, lineText); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("character") {
				if err := s.SetLineCharacter(id, lineCharacter); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("expression") {
				if err := s.SetLineExpression(id, lineExpression); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

// at resolves a 1-based position argument to the id of that item.
func at[T any](arg string, items []T, id func(T) string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(items) {
		return "", fmt.Errorf("invalid position %q: want 1..%d", arg, len(items))
	}
	return id(items[n-1]), nil
}

func relationshipAt(s *session.Session, arg string) (string, error) {
	return at(arg, s.Relationships(), func(r session.Relationship) string { return r.ID })
}

func pronounAt(s *session.Session, arg string) (string, error) {
	return at(arg, s.Pronouns(), func(r session.PronounRule) string { return r.ID })
}

func lineAt(s *session.Session, arg string) (string, error) {
	return at(arg, s.Lines(), func(l session.TextLine) string { return l.ID })
}

func printAdded(kind string, n int) {
	fmt.Printf("Added %s %d\n", kind, n)
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.PersistentFlags().StringVarP(&sessionPath, "file", "f", "session.json", "Session file")

	sessionInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
	for _, name := range []string{"context", "genre", "style", "requirements"} {
		sessionSetCmd.Flags().String(name, "", "New "+name)
	}
	sessionCmd.AddCommand(sessionInitCmd, sessionShowCmd, sessionSetCmd)

	characterCmd.AddCommand(
		editCmd("add <name>", "Add a character", cobra.ExactArgs(1), func(s *session.Session, args []string) error {
			return s.AddCharacter(args[0])
		}),
		editCmd("rename <old> <new>", "Rename a character everywhere it is used", cobra.ExactArgs(2), func(s *session.Session, args []string) error {
			return s.RenameCharacter(args[0], args[1])
		}),
		editCmd("remove <name>", "Remove a character and every rule that references it", cobra.ExactArgs(1), func(s *session.Session, args []string) error {
			return s.RemoveCharacter(args[0])
		}),
	)

	relationshipCmd.AddCommand(
		editCmd("add <description>", "Add a relationship description", cobra.MinimumNArgs(1), func(s *session.Session, args []string) error {
			s.AddRelationship(strings.Join(args, " "))
			printAdded("relationship", len(s.Relationships()))
			return nil
		}),
		editCmd("edit <n> <description>", "Replace a relationship description", cobra.MinimumNArgs(2), func(s *session.Session, args []string) error {
			id, err := relationshipAt(s, args[0])
			if err != nil {
				return err
			}
			return s.EditRelationship(id, strings.Join(args[1:], " "))
		}),
		editCmd("remove <n>", "Remove a relationship", cobra.ExactArgs(1), func(s *session.Session, args []string) error {
			id, err := relationshipAt(s, args[0])
			if err != nil {
				return err
			}
			return s.RemoveRelationship(id)
		}),
	)

	pronounAdd := editCmd("add <from> <to> <value>", "Add how <from> addresses <to>", cobra.ExactArgs(3), func(s *session.Session, args []string) error {
		if _, err := s.AddPronoun(args[0], args[1], args[2], selfValue); err != nil {
			return err
		}
		printAdded("pronoun rule", len(s.Pronouns()))
		return nil
	})
	pronounEdit := editCmd("edit <n> <from> <to> <value>", "Replace a pronoun rule", cobra.ExactArgs(4), func(s *session.Session, args []string) error {
		id, err := pronounAt(s, args[0])
		if err != nil {
			return err
		}
		return s.EditPronoun(id, args[1], args[2], args[3], selfValue)
	})
	for _, c := range []*cobra.Command{pronounAdd, pronounEdit} {
		c.Flags().StringVar(&selfValue, "self", "", "How <from> refers to itself when speaking to <to>")
	}
	pronounCmd.AddCommand(
		pronounAdd,
		pronounEdit,
		editCmd("remove <n>", "Remove a pronoun rule", cobra.ExactArgs(1), func(s *session.Session, args []string) error {
			id, err := pronounAt(s, args[0])
			if err != nil {
				return err
			}
			return s.RemovePronoun(id)
		}),
		pronounTargetsCmd,
	)

	expressionCmd.AddCommand(
		editCmd("add <tag>", "Add an expression tag", cobra.ExactArgs(1), func(s *session.Session, args []string) error {
			return s.AddExpression(args[0])
		}),
		editCmd("remove <tag>", "Remove an expression tag and clear it from lines", cobra.ExactArgs(1), func(s *session.Session, args []string) error {
			return s.RemoveExpression(args[0])
		}),
	)

	lineAdd := editCmd("add <text>", "Append a text line", cobra.ExactArgs(1), func(s *session.Session, args []string) error {
		if _, err := s.AddTextLine(args[0], lineCharacter, lineExpression); err != nil {
			return err
		}
		printAdded("line", len(s.Lines()))
		return nil
	})
	for _, c := range []*cobra.Command{lineAdd, lineSetCmd} {
		c.Flags().StringVar(&lineCharacter, "character", "", "Speaking character (empty for none)")
		c.Flags().StringVar(&lineExpression, "expression", "", "Expression tag (empty for none)")
	}
	lineSetCmd.Flags().StringVar(&lineText, "text", "", "New line text")
	lineCmd.AddCommand(
		lineAdd,
		lineImportCmd,
		lineSetCmd,
		editCmd("remove <n>", "Remove a text line", cobra.ExactArgs(1), func(s *session.Session, args []string) error {
			id, err := lineAt(s, args[0])
			if err != nil {
				return err
			}
			return s.RemoveTextLine(id)
		}),
		editCmd("move <n> <up|down>", "Swap a line with its neighbour", cobra.ExactArgs(2), func(s *session.Session, args []string) error {
			id, err := lineAt(s, args[0])
			if err != nil {
				return err
			}
			dir, err := session.ParseDirection(args[1])
			if err != nil {
				return err
			}
			return s.ReorderTextLine(id, dir)
		}),
	)

	sessionCmd.AddCommand(characterCmd, relationshipCmd, pronounCmd, expressionCmd, lineCmd)
}
