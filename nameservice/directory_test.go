package nameservice

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestDirectory(t *testing.T) {
	d, err := NewDirectory("/fakeyServer/rpc=localhost:1234")
	test.That(t, err, test.ShouldBeNil)

	addr, err := d.Resolve("/fakeyServer/rpc")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, addr, test.ShouldEqual, "localhost:1234")

	_, err = d.Resolve("/fakeyServer/state:o")
	test.That(t, errors.Is(err, ErrNameNotFound), test.ShouldBeTrue)

	test.That(t, d.Register("/fakeyServer/state:o", "localhost:1234"), test.ShouldBeNil)
	// Same address again is fine, a different one is not.
	test.That(t, d.Register("/fakeyServer/state:o", "localhost:1234"), test.ShouldBeNil)
	test.That(t, d.Register("/fakeyServer/state:o", "localhost:9999"), test.ShouldNotBeNil)
	test.That(t, d.Names(), test.ShouldResemble, []string{"/fakeyServer/rpc", "/fakeyServer/state:o"})

	d.Unregister("/fakeyServer/state:o")
	d.Unregister("/never")
	test.That(t, d.Names(), test.ShouldResemble, []string{"/fakeyServer/rpc"})
}

func TestDirectoryRejectsBadNames(t *testing.T) {
	_, err := NewDirectory("/fakeyServer/rpc")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDirectory("fakeyServer/rpc=localhost:1")
	test.That(t, err, test.ShouldNotBeNil)

	d, err := NewDirectory()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Register("/", "localhost:1"), test.ShouldNotBeNil)
	test.That(t, d.Register("/a b", "localhost:1"), test.ShouldNotBeNil)
}
