/*
Package retouch is an interactive object removal library: the user paints a mask
over the unwanted parts of an image and the library erases them by calling a
generative inpainting backend, then surgically composites the returned pixels
back into the original image, leaving every unmasked pixel untouched.

The package provides a command line interface together with a GUI mode for
painting the mask interactively. To check the supported commands type:

	$ retouch --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"context"
		"fmt"

		"github.com/example/retouch"
		"github.com/example/retouch/inpaint"
	)

	func main() {
		img, err := retouch.DecodeImageFile("sample.jpg")
		if err != nil {
			fmt.Printf("Error loading the image: %s", err.Error())
		}

		client := inpaint.NewGemini("")
		session, err := retouch.NewSession(img, client, 1280, 800)
		if err != nil {
			fmt.Printf("Error starting the session: %s", err.Error())
		}

		// Paint the mask through the session surface, then:
		if err := session.RemoveObject(context.Background()); err != nil {
			fmt.Printf("Error removing the object: %s", err.Error())
		}
	}
*/
package retouch
