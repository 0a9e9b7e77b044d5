package main

// demoScript sends "hi" from connection 1 once its channel opens. Connection
// 2 echoes whatever it receives, and the process exits once the echo is back
// at connection 1.
const demoScript = `
const bridge = require("rnwebrtc");

function received(connectionId, tag, data) {
	console.log("received " + data.length + " bytes on " + connectionId + "/" + tag + ": " + Buffer.from(data).toString());
	if (connectionId === 2) {
		bridge.dataChannelSend(2, tag, data);
	} else {
		exit(0);
	}
}

bridge.addListener("dataChannelStateChanged", (e) => {
	console.log("channel " + e.peerConnectionId + "/" + e.reactTag + " is " + e.state);
	if (e.peerConnectionId === 1 && e.state === "open") {
		bridge.dataChannelSend(1, e.reactTag, Buffer.from("hi"));
	}
});

// buffered delivery, the default
bridge.addListener("dataChannelReceiveRawMessage", (e) => {
	const data = bridge.dataChannelReceive(e.peerConnectionId, e.reactTag);
	if (data.length !== 0) {
		received(e.peerConnectionId, e.reactTag, data);
	}
});

// raw delivery
bridge.addListener("dataChannelReceiveMessage", (e) => {
	received(e.peerConnectionId, e.reactTag, e.type === "binary" ? e.data : Buffer.from(e.data));
});
`
