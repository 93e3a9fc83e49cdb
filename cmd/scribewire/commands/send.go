package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// chunkSize is 100ms of 16kHz mono 16-bit PCM.
const chunkSize = 3200

var (
	sendGatewayURL string
	sendSpeakers   []string
)

var sendCmd = &cobra.Command{
	Use:   "send <audio-file.raw>",
	Short: "Stream a raw PCM file to a gateway",
	Long: `Stream a raw PCM file to a gateway at real-time pace.

The file must be 16kHz, mono, 16-bit little-endian PCM. To convert with
ffmpeg:

  ffmpeg -i input.mp3 -ar 16000 -ac 1 -f s16le output.raw

With --speaker, an active-speaker metadata frame is sent before the audio
so the gateway can resolve diarization labels to names.`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendGatewayURL, "gateway", "ws://localhost:8085/ws", "gateway websocket URL")
	sendCmd.Flags().StringSliceVar(&sendSpeakers, "speaker", nil, "active speaker as id:name, repeatable")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	audio, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read audio file: %w", err)
	}
	if len(audio) == 0 {
		return errors.New("audio file is empty")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), sendGatewayURL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", sendGatewayURL, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to gateway at %s\n", sendGatewayURL)
	fmt.Printf("Sending %s (%d bytes)\n", args[0], len(audio))

	if len(sendSpeakers) > 0 {
		frame, err := speakerUpdateFrame(sendSpeakers)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return fmt.Errorf("send metadata: %w", err)
		}
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for offset := 0; offset < len(audio); {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
		}
		end := min(offset+chunkSize, len(audio))
		if err := conn.WriteMessage(websocket.BinaryMessage, audio[offset:end]); err != nil {
			return fmt.Errorf("send audio: %w", err)
		}
		offset = end
		fmt.Printf("\rProgress: %.1f%%", float64(offset)/float64(len(audio))*100)
	}
	fmt.Println("\nFinished sending audio")

	// Give the engine a moment to flush trailing results.
	time.Sleep(time.Second)
	return conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
