package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kass/go-pinmap/pkg/controller"
	"github.com/kass/go-pinmap/pkg/editor"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a pin as the logged-in user",
	Long: `Create a pin without opening the map. This goes through the same steps as a
double-click on the map: the draft is opened at --lat/--lon, filled in and submitted.`,
	Args: cobra.NoArgs,
	RunE: runWithApp(false, runAdd),
}

var newPin struct {
	lat, lon    float64
	title, desc string
	rating      int
	image       string
}

func init() {
	f := addCmd.Flags()
	f.Float64Var(&newPin.lat, "lat", 0, "Latitude")
	f.Float64Var(&newPin.lon, "lon", 0, "Longitude")
	f.StringVarP(&newPin.title, "title", "t", "", "Title")
	f.StringVarP(&newPin.desc, "desc", "d", "", "Description")
	f.IntVarP(&newPin.rating, "rating", "r", 0, "Rating from 1 to 5")
	f.StringVarP(&newPin.image, "image", "i", "", "Path to the photo")
	_ = addCmd.MarkFlagRequired("lat")
	_ = addCmd.MarkFlagRequired("lon")
}

func runAdd(a *app, cmd *cobra.Command, args []string) error {
	ctrl, err := a.controller()
	if err != nil {
		return err
	}
	// Fetch existing pins first so the new one lands in a loaded collection
	if load := ctrl.Init(); load != nil {
		ctrl.Dispatch(load())
	}
	if st := ctrl.State(); !st.Pins.Loaded() {
		printWarning(st.Notice.Text)
	}

	steps := []any{
		controller.MapDoubleClickedMsg{Lat: newPin.lat, Long: newPin.lon},
		controller.FieldChangedMsg{Field: editor.FieldTitle, Value: newPin.title},
		controller.FieldChangedMsg{Field: editor.FieldDesc, Value: newPin.desc},
	}
	if newPin.rating != 0 {
		steps = append(steps, controller.FieldChangedMsg{Field: editor.FieldRating, Value: strconv.Itoa(newPin.rating)})
	}
	if newPin.image != "" {
		data, err := os.ReadFile(newPin.image)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		steps = append(steps, controller.ImageDroppedMsg{Image: editor.Image{Name: filepath.Base(newPin.image), Data: data}})
	}

	before := ctrl.State().Pins.Len()
	for _, msg := range steps {
		ctrl.Dispatch(msg)
		if err := noticeErr(ctrl.State()); err != nil {
			return err
		}
	}
	if !ctrl.State().Editor.Active() {
		return errors.New("no draft was opened")
	}

	ctrl.Dispatch(controller.SubmitMsg{})
	st := ctrl.State()
	if err := noticeErr(st); err != nil {
		return err
	}
	if st.Pins.Len() != before+1 {
		return errors.New("pin was not created")
	}

	printSuccess(st.Notice.Text)
	all := st.Pins.All()
	created := all[len(all)-1]
	printStat("ID", created.ID)
	printStat("Location", fmt.Sprintf("%.6f, %.6f", created.Lat, created.Long))
	if url := a.client.ImageURL(created); url != "" {
		printStat("Image", url)
	}
	return nil
}
