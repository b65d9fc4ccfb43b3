package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"voice-commands/internal/domain"
)

// ResolveVoice lists the engine's voices and maps the profile's voice ID onto
// the catalog. A numeric ID selects by index. The listing is printed to out.
func ResolveVoice(ctx context.Context, catalog VoiceCatalog, profile domain.VoiceProfile, out io.Writer, logger *slog.Logger) (domain.VoiceProfile, error) {
	voices, err := catalog.Voices(ctx)
	if err != nil {
		return profile, fmt.Errorf("listing voices: %w", err)
	}

	logger.Info("available voices", "count", len(voices))
	for i, v := range voices {
		fmt.Fprintln(out, i, v.ID, v.Name)
	}

	if profile.ID == "" {
		return profile, nil
	}

	if idx, err := strconv.Atoi(profile.ID); err == nil {
		if idx < 0 || idx >= len(voices) {
			logger.Warn("voice index out of range, using engine default", "index", idx, "available", len(voices))
			profile.ID = ""
			return profile, nil
		}
		profile.ID = voices[idx].ID
		logger.Info("selected voice", "index", idx, "id", profile.ID, "name", voices[idx].Name)
		return profile, nil
	}

	for _, v := range voices {
		if v.ID == profile.ID || strings.EqualFold(v.Name, profile.ID) {
			profile.ID = v.ID
			logger.Info("selected voice", "id", v.ID, "name", v.Name)
			return profile, nil
		}
	}

	logger.Warn("voice not in catalog, passing through", "id", profile.ID)
	return profile, nil
}
