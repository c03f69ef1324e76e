package demo

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// SyntheticFrames builds n Ethernet frames alternating between TCP and UDP
// with rotating ports, so the classify bookkeeper has both protocols to
// fan out and the decomposition hash spreads frames across replicas.
func SyntheticFrames(n int) ([][]byte, error) {
	frames := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		frame, err := buildFrame(i)
		if err != nil {
			return nil, fmt.Errorf("build frame %d: %w", i, err)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func buildFrame(i int) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0xaa, 0xbb, 0xcc, 0xdd, 0xee},
		EthernetType: layers.EthernetTypeIPv4,
	}

	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		Id:       uint16(i + 1),
		Flags:    layers.IPv4DontFragment,
		TTL:      64,
		SrcIP:    net.IPv4(10, 0, 0, byte(1+i%250)),
		DstIP:    net.IPv4(10, 0, 1, byte(1+(i*7)%250)),
	}

	payload := gopacket.Payload([]byte(fmt.Sprintf("frame-%d", i)))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}

	if i%2 == 0 {
		ip.Protocol = layers.IPProtocolTCP
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(40000 + i),
			DstPort: layers.TCPPort(80),
			Seq:     uint32(i),
			SYN:     true,
			Window:  14600,
		}
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp, payload); err != nil {
			return nil, err
		}
	} else {
		ip.Protocol = layers.IPProtocolUDP
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(50000 + i),
			DstPort: layers.UDPPort(5060),
		}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, payload); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}
