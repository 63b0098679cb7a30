package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func sttCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stt <audio-file>",
		Short: "Transcribe a recorded answer with the study service",
		Long: `Upload a recorded audio answer and print the recognized text.
Useful for dictating test answers: pipe the output into the session or
paste it into the chat input.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			audio, err := os.ReadFile(args[0])
			if err != nil {
				exitOnError(err)
			}

			api := newAPIClient()
			text, err := api.UploadAudio(context.Background(), audio, filepath.Base(args[0]))
			if err != nil {
				exitOnError(err)
			}
			fmt.Println(text)
		},
	}
}
