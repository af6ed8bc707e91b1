package netcard

import (
	"golang.org/x/sys/unix"
)

// This file is the host-socket bridge: raw, non-blocking BSD sockets
// used both by the regular TCP/UDP sockets and by the virtual TCP
// terminator. Every blocking call is a bounded unix.Poll — there are
// no goroutines and no long-lived blocking reads.

func hostClose(fd int) error {
	return unix.Close(fd)
}

func newNonblockingSocket(typ int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, typ, 0)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func newStreamSocket() (int, error) { return newNonblockingSocket(unix.SOCK_STREAM) }
func newDgramSocket() (int, error)  { return newNonblockingSocket(unix.SOCK_DGRAM) }

// redirect implements the virtual-network redirect rule: any
// destination whose first three octets are 192.168.64 or 192.168.65
// resolves to 127.0.0.1; everything else resolves directly.
// redirect(redirect(ip)) == redirect(ip): applying it twice to an
// already-redirected 127.0.0.1 address is a no-op because
// 127.0.0.1 never matches the 192.168.64/65 prefixes.
func redirect(ip [4]byte) [4]byte {
	if ip[0] == 192 && ip[1] == 168 && (ip[2] == 64 || ip[2] == 65) {
		return [4]byte{127, 0, 0, 1}
	}
	return ip
}

func sockaddr(ip [4]byte, port uint16) *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{Addr: ip, Port: int(port)}
}

// connectNonblocking starts a non-blocking connect. It returns
// (established=true, err=nil) on an immediate connect, (false, nil)
// when the connect is in progress (EINPROGRESS), or a non-nil err on
// any other failure.
func connectNonblocking(fd int, ip [4]byte, port uint16) (established bool, err error) {
	err = unix.Connect(fd, sockaddr(ip, port))
	if err == nil {
		return true, nil
	}
	if err == unix.EINPROGRESS {
		return false, nil
	}
	return false, err
}

// pollWritable waits up to timeoutMs for fd to become writable.
func pollWritable(fd int, timeoutMs int) bool {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	n, err := unix.Poll(fds, timeoutMs)
	return err == nil && n > 0 && fds[0].Revents&unix.POLLOUT != 0
}

// pollReadable waits up to timeoutMs for fd to become readable.
func pollReadable(fd int, timeoutMs int) bool {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, timeoutMs)
	return err == nil && n > 0 && fds[0].Revents&unix.POLLIN != 0
}

// socketError returns SO_ERROR for fd (0 if the socket is healthy).
func socketError(fd int) int {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return int(err.(unix.Errno))
	}
	return errno
}

func bindAndListen(fd int, port uint16, backlog int) error {
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: int(port)}); err != nil {
		return err
	}
	return unix.Listen(fd, backlog)
}

func acceptNonblocking(fd int) (int, error) {
	nfd, _, err := unix.Accept(fd)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return -1, err
	}
	return nfd, nil
}

func hostSend(fd int, data []byte) (int, error) {
	return unix.Write(fd, data)
}

// hostRecv reads into buf. A zero-length, nil-error return means the
// peer performed an orderly shutdown (EOF).
func hostRecv(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}
