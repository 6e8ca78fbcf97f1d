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
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/dichai/internal/ocr"
	"github.com/valpere/dichai/internal/provider"
	"github.com/valpere/dichai/internal/session"
)

var (
	ocrImage    string
	ocrLanguage string
	ocrImport   string
	ocrOutput   string
)

var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "Extract text from an image with the OCR service",
	Long: `Upload an image to the OCR service configured by ocr_url and print the transcript.

With --import the transcript lines replace the text lines of a session file.

Supported languages: ` + strings.Join(ocr.Languages, ", "),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.OCRURL == "" {
			return errors.New("no OCR service configured: set ocr_url or --ocr-url")
		}

		f, err := os.Open(ocrImage)
		if err != nil {
			return fmt.Errorf("failed to open image: %w", err)
		}
		defer f.Close()

		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 5 * time.Minute
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		client := ocr.New(cfg.OCRURL, &http.Client{Timeout: timeout})
		res, err := client.Extract(ctx, ocrImage, f, ocrLanguage)
		if err != nil {
			return err
		}
		if res.DownloadURL != "" {
			logger.Info("Transcript available", zap.String("download_url", res.DownloadURL))
		}

		lines := ocr.TranscriptLines(res.Transcript)
		if ocrImport == "" {
			return writeOutput(ocrOutput, strings.Join(lines, "\n"))
		}

		catalog := provider.NewCatalog()
		s, settings := session.New(), configSettings(catalog)
		if _, statErr := os.Stat(ocrImport); statErr == nil {
			s, settings, err = loadSession(ocrImport, catalog)
			if err != nil {
				return err
			}
		}
		n := s.ImportText(strings.Join(lines, "\n"))
		if err := saveSession(ocrImport, s, catalog, settings); err != nil {
			return err
		}
		fmt.Printf("Imported %d lines into %s\n", n, ocrImport)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringVarP(&ocrImage, "image", "i", "", "Image file to extract (required)")
	ocrCmd.Flags().StringVarP(&ocrLanguage, "language", "l", "Japanese", "Language of the text in the image")
	ocrCmd.Flags().StringVar(&ocrImport, "import", "", "Session file whose lines are replaced by the transcript")
	ocrCmd.Flags().StringVarP(&ocrOutput, "output", "o", "", "Transcript output file (default stdout)")
	ocrCmd.Flags().String("ocr-url", "", "OCR service endpoint (default from config)")

	ocrCmd.MarkFlagRequired("image")
}
