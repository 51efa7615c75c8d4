package config

// Example usage of the configuration system:
//
// 1. Load configuration with all sources:
//
//     config, err := config.Load("", nil)
//     if err != nil {
//         log.Fatal(err)
//     }
//
// 2. Load with custom config file:
//
//     config, err := config.Load("/path/to/config.yaml", nil)
//     if err != nil {
//         log.Fatal(err)
//     }
//
// 3. Load with command line flags:
//
//     flags := map[string]interface{}{
//         "engine": "native",
//         "transcriber": "local",
//         "output": "./my-downloads",
//         "log-level": "debug",
//     }
//     config, err := config.Load("", flags)
//     if err != nil {
//         log.Fatal(err)
//     }
//
// 4. Programmatic configuration:
//
//     config := config.DefaultConfig()
//     config.Transcription.GroqAPIKey = "gsk_..."
//     config.Engines.Preferred = "native"
//
//     if err := config.Validate(); err != nil {
//         log.Fatal(err)
//     }
//
// 5. Save configuration to file:
//
//     if err := config.Save(".reelgrab.yaml"); err != nil {
//         log.Fatal(err)
//     }
//
// 6. Environment variables:
//
//     REELGRAB_PREFERRED_ENGINE=native
//     REELGRAB_TRANSCRIPTION_BACKEND=groq
//     GROQ_API_KEY=gsk_...
//     REELGRAB_OUTPUT_DIR=/data/reels
//     REELGRAB_LOG_LEVEL=debug
