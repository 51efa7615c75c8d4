package transcribe

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"reelgrab/pkg/config"
	"reelgrab/pkg/errors"
	"reelgrab/pkg/logger"
	"reelgrab/pkg/media"
	"reelgrab/pkg/models"
)

const defaultWhisperBin = "whisper-cli"

// LocalTranscriber runs whisper.cpp on the machine, so no audio ever leaves
// the host. It needs the whisper-cli binary and a ggml model file.
type LocalTranscriber struct {
	binPath   string
	modelPath string
	language  string
	media     *media.Processor
	log       logger.Logger

	loadOnce sync.Once
	loadErr  error
	resolved string
}

// NewLocalTranscriber creates the on-device backend from configuration.
func NewLocalTranscriber(cfg *config.Config, proc *media.Processor, log logger.Logger) *LocalTranscriber {
	tc := cfg.Transcription

	bin := tc.WhisperBin
	if bin == "" {
		bin = defaultWhisperBin
	}

	return &LocalTranscriber{
		binPath:   bin,
		modelPath: tc.WhisperModel,
		language:  tc.Language,
		media:     proc,
		log:       log.WithField("transcriber", BackendLocal),
	}
}

// Name identifies this backend.
func (l *LocalTranscriber) Name() string {
	return BackendLocal
}

// Load resolves the whisper binary and model file. The outcome is memoized,
// including a failure, so a missing model is not probed again per item.
func (l *LocalTranscriber) Load(ctx context.Context) error {
	l.loadOnce.Do(func() {
		resolved, err := exec.LookPath(l.binPath)
		if err != nil {
			l.loadErr = errors.Wrap(errors.ErrorTypeTranscription,
				"whisper binary not found, install whisper.cpp or switch to the groq backend", err)
			return
		}
		l.resolved = resolved

		if l.modelPath == "" {
			l.loadErr = errors.New(errors.ErrorTypeTranscription,
				"whisper model path not set, download a ggml model and set transcription.whisper_model")
			return
		}
		if _, err := os.Stat(l.modelPath); err != nil {
			l.loadErr = errors.Wrap(errors.ErrorTypeTranscription, "whisper model file not found", err)
			return
		}

		l.log.InfoWithFields("Whisper model ready", map[string]interface{}{
			"binary": resolved,
			"model":  l.modelPath,
		})
	})
	return l.loadErr
}

// Transcribe converts the audio to the PCM layout whisper.cpp expects, runs
// the CLI, and reads the text it wrote. Local runs do no cleanup pass; the
// raw and final text are the same.
func (l *LocalTranscriber) Transcribe(ctx context.Context, audioPath string, opts models.Options, onProgress models.ProgressFunc) (*Result, error) {
	if onProgress == nil {
		onProgress = models.NopProgress
	}

	onProgress("", 5, "Loading Whisper model...")
	if err := l.Load(ctx); err != nil {
		return nil, err
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeTranscription, "audio file not readable", err)
	}

	input := audioPath
	wavPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".wav"
	if err := l.media.ConvertToWav(ctx, audioPath, wavPath); err != nil {
		l.log.WithError(err).Warn("WAV conversion failed, feeding original audio to whisper")
	} else {
		input = wavPath
		defer os.Remove(wavPath)
	}

	onProgress("", 20, "Transcribing audio...")

	outPrefix := strings.TrimSuffix(input, filepath.Ext(input)) + ".whisper"
	cmd := exec.CommandContext(ctx, l.resolved, l.args(input, outPrefix)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrorTypeTranscription, "whisper run failed: "+firstLine(out), err)
	}

	textPath := outPrefix + ".txt"
	defer os.Remove(textPath)
	data, err := os.ReadFile(textPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeTranscription, "whisper wrote no transcript file", err)
	}

	text := strings.TrimSpace(string(data))
	onProgress("", 100, "Transcription completed")
	return &Result{Text: text, RawText: text}, nil
}

// args builds the whisper.cpp invocation: plain text output to
// outPrefix.txt, no timestamps, language auto-detected unless configured.
func (l *LocalTranscriber) args(input, outPrefix string) []string {
	lang := l.language
	if lang == "" {
		lang = "auto"
	}
	return []string{
		"-m", l.modelPath,
		"-f", input,
		"-l", lang,
		"-otxt",
		"-of", outPrefix,
		"-nt",
	}
}

// firstLine trims tool output down to something an error message can carry.
func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
