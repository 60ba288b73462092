/*
Package atomicfile writes files so that they're either fully written or not
changed at all.

Doing it right means checking errors from Write(), Sync() and Close()
and removing partially written data on any failure. File does that:

	err := atomicfile.WriteFile(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})

or, for more control:

	f, err := atomicfile.New(path)
	if err != nil {
		return err
	}
	// no-op after a successful Close()
	defer f.Cancel()
	if _, err = f.Write(data); err != nil {
		return err
	}
	return f.Close()
*/
package atomicfile
