package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/owlcms/recorder/internal/assets"
	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/devices"
	"github.com/owlcms/recorder/internal/logging"
	"github.com/owlcms/recorder/internal/player"
	"github.com/owlcms/recorder/internal/status"
	"github.com/owlcms/recorder/internal/sysstats"
)

const (
	previewWidth   = 640
	previewHeight  = 480
	previewRefresh = 100 * time.Millisecond
)

// runWindow shows the preview window until it is closed or a signal arrives.
func runWindow(a *app, sigChan <-chan os.Signal) {
	myApp := fyneapp.New()
	myApp.SetIcon(assets.IconResource)
	window := myApp.NewWindow("OWLCMS Recorder")

	window.SetCloseIntercept(func() {
		if !a.registry.IsAnyActive() {
			window.Close()
			return
		}
		confirmDialog := dialog.NewConfirm(
			"Confirm Exit",
			"Players are still running. Exiting will stop their recordings. Are you sure you want to exit?",
			func(confirm bool) {
				if !confirm {
					logging.InfoLogger.Println("Closing recorder")
					window.Close()
				}
			},
			window,
		)
		confirmDialog.SetConfirmText("Don't Stop Recorder")
		confirmDialog.SetDismissText("Stop Recorder and Exit")
		confirmDialog.Show()
	})

	label := widget.NewLabel("OWLCMS Recorder")
	label.TextStyle = fyne.TextStyle{Bold: true}
	parsedURL, _ := url.Parse(fmt.Sprintf("http://localhost:%d", a.cfg.Port))
	hyperlink := widget.NewHyperlink("Open control page in browser", parsedURL)

	statusLabel := widget.NewLabel("Ready")
	statusLabel.Wrapping = fyne.TextWrapWord
	statsLabel := widget.NewLabel("")

	image := canvas.NewImageFromImage(nil)
	image.FillMode = canvas.ImageFillContain
	image.SetMinSize(fyne.NewSize(previewWidth/2, previewHeight/2))

	pv := &preview{image: image, stats: statsLabel, sampler: a.sampler}

	var names []string
	for _, c := range a.registry.List() {
		names = append(names, c.Name())
	}
	selector := widget.NewSelect(names, func(name string) {
		if c, ok := a.registry.Get(name); ok {
			pv.show(c)
		}
	})

	action := func(name string) func() {
		return func() {
			c := pv.current()
			if c == nil {
				return
			}
			if _, err := c.Do(name); err != nil {
				dialog.ShowError(err, window)
			}
		}
	}
	buttons := container.NewHBox(
		widget.NewButton("Play", action("play")),
		widget.NewButton("Stop", action("stop")),
		widget.NewButton("Record", action("record")),
		widget.NewButton("Stop Recording", action("stopRecording")),
	)

	top := container.NewVBox(
		container.NewHBox(label, hyperlink),
		container.NewBorder(nil, nil, widget.NewLabel("Player"), nil, selector),
		buttons,
	)
	bottom := container.NewVBox(widget.NewSeparator(), statsLabel, statusLabel)
	window.SetContent(container.NewPadded(container.NewBorder(top, bottom, nil, nil, image)))
	window.Resize(fyne.NewSize(800, 700))
	window.CenterOnScreen()

	window.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("Files",
			fyne.NewMenuItem("Capture Devices", func() {
				showDevices(window)
			}),
			fyne.NewMenuItem("Open Application Directory", func() {
				openApplicationDirectory()
			}),
		),
		fyne.NewMenu("Help",
			fyne.NewMenuItem("About", func() {
				dialog.ShowInformation("About", fmt.Sprintf("OWLCMS Recorder\nVersion %s", config.GetProgramVersion()), window)
			}),
		),
	))
	if len(names) > 0 {
		selector.SetSelected(names[0])
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pv.run(ctx)
	go showEvents(ctx, a.events.Channel(64), statusLabel)

	go func() {
		select {
		case <-sigChan:
			logging.InfoLogger.Println("Interrupt signal received. Shutting down...")
			myApp.Quit()
		case <-ctx.Done():
		}
	}()

	window.ShowAndRun()
}

// showEvents keeps the last event in the status line, in bold when something failed.
func showEvents(ctx context.Context, events <-chan status.Event, statusLabel *widget.Label) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Severity == status.Debug {
				continue
			}
			statusLabel.SetText(ev.String())
			statusLabel.TextStyle = fyne.TextStyle{Bold: ev.Severity >= status.Warning}
			statusLabel.Refresh()
		}
	}
}

func showDevices(window fyne.Window) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cameras, err := devices.List(ctx)
		if err != nil {
			dialog.ShowError(err, window)
			return
		}
		if len(cameras) == 0 {
			dialog.ShowInformation("Capture Devices", "No capture devices found.", window)
			return
		}
		var b strings.Builder
		for _, cam := range cameras {
			fmt.Fprintf(&b, "%s (%s)\n", cam.Name, cam.Device)
			if best, ok := cam.Best(); ok {
				fmt.Fprintf(&b, "    %s\n", best)
			}
		}
		b.WriteString("\nRun with -list-devices to get the player configuration.")
		dialog.ShowInformation("Capture Devices", b.String(), window)
	}()
}

// openApplicationDirectory opens the application directory in the file explorer
func openApplicationDirectory() {
	dir := config.InstallDir()
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("explorer", dir)
	case "darwin":
		cmd = exec.Command("open", dir)
	case "linux":
		cmd = exec.Command("xdg-open", dir)
	default:
		logging.WarningLogger.Printf("Unsupported platform: %s", runtime.GOOS)
		return
	}
	if err := cmd.Start(); err != nil {
		logging.ErrorLogger.Printf("Failed to open application directory: %v", err)
	}
}

// preview draws the latest frame and counters of the selected player.
type preview struct {
	image   *canvas.Image
	stats   *widget.Label
	sampler *sysstats.Sampler

	selected atomic.Pointer[player.Controller]
}

func (p *preview) show(c *player.Controller) {
	p.selected.Store(c)
}

func (p *preview) current() *player.Controller {
	return p.selected.Load()
}

func (p *preview) run(ctx context.Context) {
	ticker := time.NewTicker(previewRefresh)
	defer ticker.Stop()
	var (
		version uint64
		shown   *player.Controller
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		c := p.current()
		if c == nil {
			continue
		}
		if c != shown {
			shown, version = c, 0
		}

		if f, v := c.Latest().Latest(); f != nil && v != version {
			version = v
			if thumb, err := f.Thumbnail(previewWidth, previewHeight); err == nil {
				p.image.Image = thumb
				p.image.Refresh()
			} else {
				logging.Trace("preview: %v", err)
			}
		}
		p.stats.SetText(statsLine(c.Stats(), p.sampler))
	}
}

func statsLine(st player.Stats, sampler *sysstats.Sampler) string {
	line := fmt.Sprintf("%s: %s, %s", st.Name, st.PlayState, sysstats.InputStats(st.FPS, st.Negotiated.Rate, st.InputBytesPerSecond, st.FramesPlayed))
	if st.RecordState == player.RecordNone {
		return line
	}
	line += "\n" + sysstats.OutputStats(st.OutputBytesPerSecond, st.BytesRecorded, st.RecordElapsed, st.FramesRecorded)
	if u, err := sampler.Latest(); err == nil {
		line += "\n" + sysstats.RecordStats(st.OutputPath, st.FramesSkipped, u, st.OutputBytesPerSecond)
	}
	return line
}
