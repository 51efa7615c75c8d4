package auth

import (
	"fmt"
	"strings"
)

// ShowCookieExtractionGuide displays step-by-step instructions for extracting cookies
func ShowCookieExtractionGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("📚 INSTAGRAM COOKIE EXTRACTION GUIDE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("The native download engine needs your Instagram session cookies.")
	fmt.Println("Public reels usually work without them, but a session avoids login")
	fmt.Println("walls and rate limiting. Follow these steps to extract them:")
	fmt.Println()

	fmt.Println("🌐 STEP 1: Open Instagram in your browser")
	fmt.Println("   - Go to https://www.instagram.com")
	fmt.Println("   - Log in with your account")
	fmt.Println("   - Make sure you can see your feed")
	fmt.Println()

	fmt.Println("🔧 STEP 2: Open Developer Tools")
	fmt.Println("   • Chrome/Edge/Brave: Press F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Println("   • Firefox: Press F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Println("   • Safari: Enable Developer menu in Preferences, then Cmd+Option+I")
	fmt.Println()

	fmt.Println("🍪 STEP 3: Find your cookies")
	fmt.Println("   1. Go to 'Application' tab (Chrome) or 'Storage' tab (Firefox)")
	fmt.Println("   2. In the left sidebar, expand 'Cookies'")
	fmt.Println("   3. Click on 'https://www.instagram.com'")
	fmt.Println("   4. Look for these cookies in the list:")
	fmt.Println()

	fmt.Println("🔑 STEP 4: Copy these specific values:")
	fmt.Println("   ┌─────────────┬──────────────────────────────────────────────┐")
	fmt.Println("   │ Cookie Name │ What it looks like                           │")
	fmt.Println("   ├─────────────┼──────────────────────────────────────────────┤")
	fmt.Println("   │ sessionid   │ Long string with %3A and %2C                 │")
	fmt.Println("   │             │ Example: 12345678%3Aabcdef...                │")
	fmt.Println("   ├─────────────┼──────────────────────────────────────────────┤")
	fmt.Println("   │ csrftoken   │ 32-character string                          │")
	fmt.Println("   │             │ Example: YTQHujAgMhyveLvvuwCfw9CPI8ROAHoy    │")
	fmt.Println("   └─────────────┴──────────────────────────────────────────────┘")
	fmt.Println()

	fmt.Println("💡 TIPS:")
	fmt.Println("   • Copy the ENTIRE value (everything after the = sign)")
	fmt.Println("   • Don't include quotes or semicolons")
	fmt.Println("   • These cookies expire, so you may need to refresh them periodically")
	fmt.Println("   • Use a secondary account to keep your main account out of harm's way")
	fmt.Println()

	fmt.Println("⚠️  SECURITY WARNING:")
	fmt.Println("   • These cookies give FULL access to your Instagram account")
	fmt.Println("   • NEVER share them with anyone")
	fmt.Println("   • Store them securely (this tool encrypts them)")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowGroqKeyGuide displays instructions for obtaining a Groq API key
func ShowGroqKeyGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("🎙️  GROQ API KEY GUIDE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("Remote transcription uses the Groq Whisper API and needs an API key.")
	fmt.Println()
	fmt.Println("   1. Go to https://console.groq.com and sign in")
	fmt.Println("   2. Open 'API Keys' and create a new key")
	fmt.Println("   3. Store it with: reelgrab auth set-key")
	fmt.Println("      or export GROQ_API_KEY in your environment")
	fmt.Println()
	fmt.Println("   Without a key you can still transcribe locally with whisper.cpp")
	fmt.Println("   (--transcriber local).")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowQuickExtractGuide shows a condensed version for experienced users
func ShowQuickExtractGuide() {
	fmt.Println("\n🍪 Quick Guide: F12 → Application tab → Cookies → instagram.com")
	fmt.Println("   Need: sessionid=... and csrftoken=...")
	fmt.Println("   Run 'reelgrab auth set-session' for detailed instructions")
}
