// Package storage keeps the downloaded images of the image fetcher.
//
// Every entity gets one file named after it, <safe-name><ext>, in a single
// output directory. Files are written to a temporary name first and renamed
// once complete. Existing images are indexed when the Manager is created so
// a run can skip entities that already have one.
//
// Usage:
//
//	manager, err := storage.NewManager("image_resources")
//	if err != nil {
//	    return err
//	}
//
//	if _, ok := manager.Existing("Aardvark"); !ok {
//	    path, err := manager.Save(body, "Aardvark", ".jpg")
//	    ...
//	}
package storage
